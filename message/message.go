// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package message populates configuration structs from generic decoded TOML
// (or JSON) objects, applying defaults and validation declared in struct tags.
package message

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/stockparfait/errors"
)

// Message is a configuration section, typically implemented by a struct
// pointer:
//
//	type Series struct {
//	  URL     string            `toml:"endpoint_url" required:"true"`
//	  Auth    string            `toml:"auth" default:"none" choices:"none,header"`
//	  Timeout time.Duration     `toml:"timeout" default:"30s"`
//	  Params  map[string]string `toml:"params"`
//	}
//
//	func (s *Series) InitMessage(js any) error {
//	  return message.Init(s, js)
//	}
type Message interface {
	// InitMessage converts a generic decoded object into the specific message:
	// it checks for required fields, sets the default values of optional
	// fields, and makes sure that no unrecognized fields are present.
	InitMessage(js any) error
}

var (
	rMessage         = reflect.TypeOf((*Message)(nil)).Elem()
	rTextUnmarshaler = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	rDuration        = reflect.TypeOf(time.Duration(0))
)

func convertToMessage(jv any, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Kind() != reflect.Ptr {
		return Nil, errors.Reason(
			"type %s implements Message but is not a pointer", t.Name())
	}
	ptr := reflect.New(t.Elem())
	if err := ptr.Interface().(Message).InitMessage(jv); err != nil {
		return Nil, errors.Annotate(err, "%s.InitMessage() failed", t.Elem().Name())
	}
	return ptr, nil
}

// textValue extracts the text form of a scalar: strings as is, and values like
// TOML local dates through their String method.
func textValue(jv any) (string, bool) {
	switch v := jv.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	}
	return "", false
}

// fromText creates a value of a TextUnmarshaler type t (pointer receiver).
func fromText(s string, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		return reflect.Value{}, errors.Annotate(err, "invalid %s value: '%s'", t.Name(), s)
	}
	return ptr.Elem(), nil
}

func toInt(jv any) (int64, bool) {
	switch v := jv.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func convertToType(jv any, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t.Implements(rMessage) {
		if jv == nil {
			return reflect.Zero(t), nil
		}
		ptr, err := convertToMessage(jv, t)
		if err != nil {
			return Nil, errors.Annotate(err, "failed to parse Message %s", t.Name())
		}
		return ptr, nil
	}
	if ptrTp := reflect.PtrTo(t); ptrTp.Implements(rMessage) {
		if jv == nil {
			jv = make(map[string]any) // force default values for t
		}
		ptr, err := convertToMessage(jv, ptrTp)
		if err != nil {
			return Nil, errors.Annotate(err, "failed to parse Message %s", t.Name())
		}
		return reflect.Indirect(ptr), nil
	}
	if jv == nil {
		return reflect.Zero(t), nil
	}
	if t == rDuration {
		s, ok := jv.(string)
		if !ok {
			return Nil, errors.Reason("duration must be a string like \"1s\": %v", jv)
		}
		return fromString(s, t)
	}
	if t.Kind() != reflect.Ptr && reflect.PtrTo(t).Implements(rTextUnmarshaler) {
		s, ok := textValue(jv)
		if !ok {
			return Nil, errors.Reason("not a text value for %s: %v", t.Name(), jv)
		}
		return fromText(s, t)
	}
	switch t.Kind() {
	case reflect.Ptr:
		v, err := convertToType(jv, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil

	case reflect.Bool:
		v2, ok := jv.(bool)
		if !ok {
			return Nil, errors.Reason("not a bool type: %v", jv)
		}
		return reflect.ValueOf(v2), nil

	case reflect.Int:
		v2, ok := toInt(jv)
		if !ok {
			return Nil, errors.Reason("not an integer: %v", jv)
		}
		return reflect.ValueOf(int(v2)), nil

	case reflect.Float64:
		if v2, ok := toInt(jv); ok {
			return reflect.ValueOf(float64(v2)), nil
		}
		v2, ok := jv.(float64)
		if !ok {
			return Nil, errors.Reason("not a numeric type: %v", jv)
		}
		return reflect.ValueOf(v2), nil

	case reflect.String:
		v2, ok := jv.(string)
		if !ok {
			return Nil, errors.Reason("not a string type: %v", jv)
		}
		return reflect.ValueOf(v2).Convert(t), nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Nil, errors.Reason(
				"map[%s] is not supported", t.Key().Kind().String())
		}
		v2, ok := jv.(map[string]any)
		if !ok {
			return Nil, errors.Reason("not a map[string] type: %v", jv)
		}
		res := reflect.MakeMap(t)
		for k, v := range v2 {
			el, err := convertToType(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "key '%s'", k)
			}
			res.SetMapIndex(reflect.ValueOf(k), el)
		}
		return res, nil

	case reflect.Slice:
		v2, ok := jv.([]any)
		if !ok {
			return Nil, errors.Reason("not a slice type: %v", jv)
		}
		res := reflect.MakeSlice(t, len(v2), len(v2))
		for i, v := range v2 {
			el, err := convertToType(v, t.Elem())
			if err != nil {
				return Nil, errors.Annotate(err, "element %d", i)
			}
			res.Index(i).Set(el)
		}
		return res, nil

	default:
		return Nil, errors.Reason("unsupported type: %s", t.Name())
	}
}

// fromString converts a default value from a struct tag to the type t.
func fromString(s string, t reflect.Type) (reflect.Value, error) {
	var Nil reflect.Value
	if t == rDuration {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid duration: %s", s)
		}
		return reflect.ValueOf(d), nil
	}
	if t.Kind() != reflect.Ptr && reflect.PtrTo(t).Implements(rTextUnmarshaler) {
		return fromText(s, t)
	}
	switch t.Kind() {
	case reflect.Ptr:
		v, err := fromString(s, t.Elem())
		if err != nil {
			return Nil, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid bool value: %s", s)
		}
		return reflect.ValueOf(v), nil
	case reflect.Int:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid int value: %s", s)
		}
		return reflect.ValueOf(int(v)), nil
	case reflect.Float64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Nil, errors.Annotate(err, "invalid float64 value: %s", s)
		}
		return reflect.ValueOf(v), nil
	case reflect.String:
		return reflect.ValueOf(s).Convert(t), nil
	}
	return Nil, errors.Reason("type %s is not supported", t.Name())
}

// checkSet sets the value fv of a struct field f to the value v and checks that
// the value is valid.
func checkSet(f reflect.StructField, fv reflect.Value, v reflect.Value) error {
	if choices, ok := f.Tag.Lookup("choices"); ok {
		if f.Type.Kind() != reflect.String {
			return errors.Reason(
				"choices tag applied to a non-string field: %s", f.Name)
		}
		s := v.String()
		if !StringIn(s, strings.Split(choices, ",")...) {
			return errors.Reason(
				"value for %s is not in its choice list: '%s'", f.Name, s)
		}
	}
	fv.Set(v)
	return nil
}

// fieldName is the key of the struct field in the decoded object: the `toml`
// tag, then the `json` tag, then the field name. The second result is false
// for fields excluded with "-".
func fieldName(f reflect.StructField) (string, bool) {
	for _, key := range []string{"toml", "json"} {
		tag, ok := f.Tag.Lookup(key)
		if !ok {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return f.Name, true
}

// Init is a generic method to be used by most InitMessage implementations. It
// expects m to be a struct pointer, and js to be a non-nil map[string]any as
// decoded by go-toml or encoding/json.
//
// Recognized struct tags:
// `toml:"field_name" required:"true" default:"value" choices:"one,two,three"`
//
// Durations are read from strings like "1s". Types implementing
// encoding.TextUnmarshaler are read from strings, or from TOML local dates.
// The "choices" tag is supported only for string fields. Unrecognized keys in
// js are an error.
func Init(m Message, js any) error {
	rt := reflect.TypeOf(m)
	if !(rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Struct) {
		return errors.Reason(
			"expected Message instance to be a struct pointer, but got %s.",
			rt.Name())
	}
	if js == nil {
		return errors.Reason("object is nil")
	}
	jsMap, ok := js.(map[string]any)
	if !ok {
		return errors.Reason("object is not a map: %v.", js)
	}

	rt = rt.Elem()
	rv := reflect.ValueOf(m).Elem()
	foundFields := make(map[string]struct{})
	missingRequired := []string{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		rfv := rv.Field(i)
		firstChar, _ := utf8.DecodeRuneInString(f.Name)
		if !unicode.IsUpper(firstChar) {
			continue
		}
		name, ok := fieldName(f)
		if !ok {
			continue
		}
		if jv, ok := jsMap[name]; ok {
			foundFields[name] = struct{}{}
			v, err := convertToType(jv, f.Type)
			if err != nil {
				return errors.Annotate(err, "error assigning field %s", name)
			}
			if err := checkSet(f, rfv, v); err != nil {
				return err
			}
			continue
		}

		if f.Tag.Get("required") == "true" {
			missingRequired = append(missingRequired, name)
			continue
		}
		if defaultVal, ok := f.Tag.Lookup("default"); ok {
			v, err := fromString(defaultVal, f.Type)
			if err != nil {
				return errors.Annotate(
					err, "error setting default value for %s", name)
			}
			if err := checkSet(f, rfv, v); err != nil {
				return err
			}
			continue
		}
		// Not required and no default: the zero value, or the defaults of a
		// nested Message. It still has to pass the choices check.
		v, err := convertToType(nil, f.Type)
		if err != nil {
			return errors.Annotate(err, "error creating default value for %s", name)
		}
		if err := checkSet(f, rfv, v); err != nil {
			return errors.Annotate(err, "error setting zero value for %s", name)
		}
	}
	if len(missingRequired) != 0 {
		return errors.Reason(
			"missing required fields: %s",
			strings.Join(missingRequired, ", "))
	}
	extraFields := []string{}
	for k := range jsMap {
		if _, ok := foundFields[k]; ok {
			continue
		}
		extraFields = append(extraFields, k)
	}
	if len(extraFields) != 0 {
		return errors.Reason(
			"unsupported fields for %s: %s",
			rt.Name(), strings.Join(extraFields, ", "))
	}
	return nil
}

// StringIn checks that s equals one of the values.
func StringIn(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
