// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package serialdev

import (
	"fmt"
	"strconv"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/cave_tracker/internal/device"
)

// Talker and sentence types of the tracker line protocol:
//
//	$VRTRK,sensor,qx,qy,qz,qw,px,py,pz*CS
//	$VRBTN,button,state*CS
//	$VRANA,n,c0,...,cn-1*CS
const (
	Talker      = "VR"
	TypeTracker = "TRK"
	TypeButton  = "BTN"
	TypeAnalog  = "ANA"
)

// TrackerSentence is a parsed $VRTRK sentence.
type TrackerSentence struct {
	nmea.BaseSentence
	Sample device.TrackerSample
}

// ButtonSentence is a parsed $VRBTN sentence.
type ButtonSentence struct {
	nmea.BaseSentence
	Sample device.ButtonSample
}

// AnalogSentence is a parsed $VRANA sentence.
type AnalogSentence struct {
	nmea.BaseSentence
	Sample device.AnalogSample
}

func newParser() *nmea.SentenceParser {
	return &nmea.SentenceParser{
		CustomParsers: map[string]nmea.ParserFunc{
			TypeTracker: parseTracker,
			TypeButton:  parseButton,
			TypeAnalog:  parseAnalog,
		},
	}
}

func parseTracker(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 8 {
		return nil, fmt.Errorf("nmea: %s expects 8 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	out := TrackerSentence{BaseSentence: s}
	out.Sample.Sensor = int(p.Int64(0, "sensor"))
	for i := range out.Sample.Quat {
		out.Sample.Quat[i] = p.Float64(1+i, "quat")
	}
	for i := range out.Sample.Pos {
		out.Sample.Pos[i] = p.Float64(5+i, "pos")
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	if out.Sample.Sensor < 0 {
		return nil, fmt.Errorf("nmea: %s negative sensor %d", s.Prefix(), out.Sample.Sensor)
	}
	return out, nil
}

func parseButton(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) != 2 {
		return nil, fmt.Errorf("nmea: %s expects 2 fields, got %d", s.Prefix(), len(s.Fields))
	}
	p := nmea.NewParser(s)
	out := ButtonSentence{BaseSentence: s}
	out.Sample.Button = int(p.Int64(0, "button"))
	out.Sample.State = int(p.Int64(1, "state"))
	return out, p.Err()
}

func parseAnalog(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields) < 1 {
		return nil, fmt.Errorf("nmea: %s has no channel count", s.Prefix())
	}
	p := nmea.NewParser(s)
	n := int(p.Int64(0, "count"))
	if err := p.Err(); err != nil {
		return nil, err
	}
	if n < 0 || len(s.Fields) != n+1 {
		return nil, fmt.Errorf("nmea: %s announces %d channels, carries %d", s.Prefix(), n, len(s.Fields)-1)
	}
	out := AnalogSentence{BaseSentence: s}
	out.Sample.Channels = make([]float64, n)
	for i := range out.Sample.Channels {
		out.Sample.Channels[i] = p.Float64(1+i, "channel")
	}
	return out, p.Err()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func encode(kind string, fields []string) string {
	body := Talker + kind + "," + strings.Join(fields, ",")
	return "$" + body + "*" + nmea.Checksum(body)
}

// EncodeTracker renders s as a $VRTRK sentence.
func EncodeTracker(s device.TrackerSample) string {
	fields := []string{strconv.Itoa(s.Sensor)}
	for _, q := range s.Quat {
		fields = append(fields, formatFloat(q))
	}
	for _, p := range s.Pos {
		fields = append(fields, formatFloat(p))
	}
	return encode(TypeTracker, fields)
}

// EncodeButton renders s as a $VRBTN sentence.
func EncodeButton(s device.ButtonSample) string {
	return encode(TypeButton, []string{strconv.Itoa(s.Button), strconv.Itoa(s.State)})
}

// EncodeAnalog renders s as a $VRANA sentence.
func EncodeAnalog(s device.AnalogSample) string {
	fields := []string{strconv.Itoa(len(s.Channels))}
	for _, c := range s.Channels {
		fields = append(fields, formatFloat(c))
	}
	return encode(TypeAnalog, fields)
}
