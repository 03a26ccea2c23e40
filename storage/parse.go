// Copyright © 2025 Linexin Project
//
// SPDX-License-Identifier: GPL-3.0-only

package storage

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/linexin/linexin-installer/errors"
)

func parseBlockDevicesDescriptor(data []byte) ([]*BlockDevice, error) {
	root := struct {
		BlockDevices []*BlockDevice `json:"blockdevices"`
	}{}

	err := json.Unmarshal(data, &root)
	if err != nil {
		return nil, errors.Wrap(err)
	}

	return root.BlockDevices, nil
}

// UnmarshalJSON decodes a BlockDevice, targeted to integrate with json
// decoding framework
func (bd *BlockDevice) UnmarshalJSON(b []byte) error {

	dec := json.NewDecoder(bytes.NewReader(b))

	for {
		t, err := dec.Token()
		if err == io.EOF {
			break
		}

		str, valid := t.(string)
		if !valid {
			continue
		}

		switch str {
		case "name":
			var name string

			if name, err = getNextStrToken(dec, "name"); err != nil {
				return err
			}

			bd.Name = name
		case "size":
			var size uint64

			if size, err = getNextUintToken(dec, "size"); err != nil {
				return err
			}

			bd.Size = size
		case "start":
			var start uint64

			if start, err = getNextUintToken(dec, "start"); err != nil {
				return err
			}

			bd.Start = start
		case "fstype":
			var fstype string

			if fstype, err = getNextStrToken(dec, "fstype"); err != nil {
				return err
			}

			bd.FsType = fstype
		case "type":
			var tp string

			tp, err = getNextStrToken(dec, "type")
			if err != nil {
				return err
			}

			bd.Type = parseBlockDeviceType(tp)
		case "mountpoint":
			var mpoint string

			if mpoint, err = getNextStrToken(dec, "mountpoint"); err != nil {
				return err
			}

			bd.MountPoint = mpoint
		case "label":
			var label string

			if label, err = getNextStrToken(dec, "label"); err != nil {
				return err
			}

			bd.Label = label
		case "pkname":
			var pkname string

			if pkname, err = getNextStrToken(dec, "pkname"); err != nil {
				return err
			}

			bd.ParentName = pkname
		case "rm":
			if bd.RemovableDevice, err = getNextBoolToken(dec, "rm"); err != nil {
				return err
			}
		case "children":
			bd.Children = []*BlockDevice{}
			if err := dec.Decode(&bd.Children); err != nil {
				return errors.Errorf("Invalid \"children\" token: %s", err)
			}
		}
	}

	return nil
}

func getNextStrToken(dec *json.Decoder, name string) (string, error) {
	t, _ := dec.Token()
	if t == nil {
		return "", nil
	}

	str, valid := t.(string)
	if !valid {
		return "", errors.Errorf("\"%s\" token should have a string value", name)
	}

	return str, nil
}

func getNextUintToken(dec *json.Decoder, name string) (uint64, error) {
	var value uint64
	var err error

	dec.UseNumber()
	token, _ := dec.Token()
	if token == nil {
		return 0, nil
	}

	switch t := token.(type) {
	case json.Number:
		// Is it an unsigned int value (lsblk >= 2.33)
		var n int64

		n, err = t.Int64()
		if err != nil {
			return 0, err
		}

		value = uint64(n)

	case string:
		// Is it a string value (lsblk < 2.33)
		value, err = ParseVolumeSize(t)
		if err != nil {
			return 0, err
		}
	default:
		return 0, errors.Errorf("\"%s\" token is neither an uint64 nor a string value", name)
	}

	return value, nil
}

func getNextBoolToken(dec *json.Decoder, name string) (bool, error) {
	t, _ := dec.Token()
	if t == nil {
		return false, nil
	}

	// Is it a boolean value (lsblk >= 2.33)
	b, bValid := t.(bool)
	if bValid {
		return b, nil
	}

	// Is it a string value (lsblk < 2.33)
	str, sValid := t.(string)
	if !sValid {
		return false, errors.Errorf("\"%s\" token is neither a boolean nor a string value", name)
	}

	if str == "0" {
		return false, nil
	} else if str == "1" {
		return true, nil
	} else if str == "" {
		return false, nil
	}

	return false, errors.Errorf("Unknown %s value: %s", name, str)
}
