// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
)

// Value is one dynamic event/interval attribute. OTF2 attribute bags mix
// strings, integers and floats; the kind survives a JSON round-trip so that
// persisted intervals compare equal after reload.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// ParseValue turns a raw attribute token into the narrowest kind that
// represents it: int64 first, float64 second, string otherwise.
func ParseValue(raw string) Value {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(raw)
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

func (v Value) Equal(other Value) bool {
	return v.Kind == other.Kind && v.Int == other.Int &&
		v.Float == other.Float && v.Str == other.Str
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		blob, err := json.Marshal(v.Float)
		if err == nil && !bytes.ContainsAny(blob, ".eE") {
			blob = append(blob, ".0"...)
		}
		return blob, err
	default:
		return json.Marshal(v.Str)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = StringValue(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			*v = IntValue(i)
			return nil
		}
		f, err := x.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("unsupported attribute value: %s", string(data))
	}
	return nil
}
