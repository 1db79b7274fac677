package sounding

import (
	"errors"
	"strconv"
)

// Sub-field offsets inside an XData payload, half-open character ranges.
const (
	TWCStart  = 2
	TWCEnd    = 6
	SLWCStart = 6
	SLWCEnd   = 10

	// FrequencyScale converts a decoded sub-field into its physical frequency.
	FrequencyScale = 1000
)

var errEmptySlice = errors.New("empty slice")

// DecodeSubfield extracts payload[start:end), parses it as an unsigned 16-bit
// hex number and divides it by FrequencyScale.
func DecodeSubfield(payload string, start, end int) (float64, error) {
	if start < 0 || end > len(payload) || start > end {
		return 0, &FrameError{Payload: payload, Start: start, End: end}
	}
	if start == end {
		return 0, &FrameError{Payload: payload, Start: start, End: end, Err: errEmptySlice}
	}

	v, err := strconv.ParseUint(payload[start:end], 16, 16)
	if err != nil {
		return 0, &FrameError{Payload: payload, Start: start, End: end, Err: err}
	}

	return float64(v) / FrequencyScale, nil
}

// TWCFrequency decodes the total water content sensor frequency.
func TWCFrequency(payload string) (float64, error) {
	return DecodeSubfield(payload, TWCStart, TWCEnd)
}

// SLWCFrequency decodes the supercooled liquid water content sensor frequency.
func SLWCFrequency(payload string) (float64, error) {
	return DecodeSubfield(payload, SLWCStart, SLWCEnd)
}

// DecodeFrequencies decodes both sub-channel frequencies. A malformed frame
// yields MissingValue for both channels and the first error.
func DecodeFrequencies(payload string) (twc, slwc float64, err error) {
	if twc, err = TWCFrequency(payload); err != nil {
		return MissingValue, MissingValue, err
	}
	if slwc, err = SLWCFrequency(payload); err != nil {
		return MissingValue, MissingValue, err
	}
	return twc, slwc, nil
}
