package models

import (
	"bytes"
	"strconv"
)

// RiksbankObservation is one entry of the SWEA Observations response, ordered
// ascending by date by the API.
type RiksbankObservation struct {
	Date  string   `json:"date"`
	Value ObsValue `json:"value"`
}

// ObsValue is a float64 that accepts both a JSON number and a numeric string
// on the wire; the API has been observed returning either.
type ObsValue float64

func (v *ObsValue) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*v = ObsValue(f)
	return nil
}
