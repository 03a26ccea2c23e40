// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/linexin/linexin-installer/cmd"
	"github.com/linexin/linexin-installer/log"
)

// FreeRegion is an unallocated gap in a disk's partition table, expressed
// in sectors
type FreeRegion struct {
	Start uint64 // first sector of the gap
	End   uint64 // last sector of the gap
	Size  uint64 // gap length in sectors
}

var partedBinary = "parted"

func getFreeRegionTable(devFile string) *bytes.Buffer {
	table := bytes.NewBuffer(nil)

	err := cmd.Run(table,
		partedBinary,
		"--machine",
		"--script",
		"--",
		devFile,
		"unit",
		"s",
		"print",
		"free",
	)
	if err != nil {
		log.Warning("getFreeRegionTable() had an error reading partition table %q", table.String())
		return bytes.NewBuffer(nil)
	}

	return table
}

func parseSectorField(field string, line string, what string) uint64 {
	value, err := strconv.ParseUint(strings.TrimRight(field, "s"), 10, 64)
	if err != nil {
		log.Warning("parseFreeRegions: Failed to parse %s from: %s", what, line)
	}

	return value
}

// parseFreeRegions extracts the unallocated gaps from a machine-readable
// sector-unit parted table print; allocated rows are skipped
func parseFreeRegions(table string) []*FreeRegion {
	var regions []*FreeRegion

	for _, line := range strings.Split(table, ";\n") {
		fields := strings.Split(line, ":")

		// free gaps print as "1:<start>s:<end>s:<size>s:free;"
		if len(fields) != 5 || fields[4] != "free" {
			continue
		}

		region := &FreeRegion{}
		region.Start = parseSectorField(fields[1], line, "start position")
		region.End = parseSectorField(fields[2], line, "end position")
		region.Size = parseSectorField(fields[3], line, "region size")

		if region.Size == 0 {
			continue
		}

		regions = append(regions, region)
	}

	return regions
}

// ListFreeRegions reads the partition table of the given disk and returns
// its unallocated gaps in sectors
func ListFreeRegions(devFile string) []*FreeRegion {
	return parseFreeRegions(getFreeRegionTable(devFile).String())
}
