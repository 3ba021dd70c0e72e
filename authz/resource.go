package authz

import (
	"reflect"
	"strings"
)

// Resource provides uniform field access over whatever shape the calling
// business logic hands in. Maps and structs are adapted automatically by
// AsResource; callers with richer models can implement the interface
// directly.
type Resource interface {
	// Field returns the named field's value, reporting whether the
	// resource exposes that field at all.
	Field(name string) (any, bool)

	// TypeName returns the resource type used to build permission names,
	// e.g. "posts" for a "posts:update" check.
	TypeName() string
}

// AsResource adapts an arbitrary value to the Resource interface. It returns
// nil when the value has no usable shape.
func AsResource(v any) Resource {
	switch r := v.(type) {
	case nil:
		return nil
	case Resource:
		return r
	case map[string]any:
		return mapResource(r)
	case map[string]string:
		converted := make(mapResource, len(r))
		for k, val := range r {
			converted[k] = val
		}
		return converted
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return structResource{v: rv}
	}
	return nil
}

// emptyResource reports whether the caller passed nothing usable as a
// resource: nil, a nil pointer, or an empty map.
func emptyResource(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	case reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	}
	return false
}

// mapResource adapts an associative resource. The optional "_type" entry
// names the resource type; without it the type is the literal "resource".
type mapResource map[string]any

func (m mapResource) Field(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m mapResource) TypeName() string {
	if t, ok := m["_type"]; ok {
		if s := stringify(t); s != "" {
			return strings.ToLower(s)
		}
	}
	return "resource"
}

// structResource adapts an object-shaped resource via reflection. Fields are
// resolved by json tag first, then by name with underscores ignored, so
// "user_id" finds both a `json:"user_id"` tag and a UserID field.
type structResource struct {
	v reflect.Value
}

func (s structResource) Field(name string) (any, bool) {
	t := s.v.Type()
	bare := strings.ReplaceAll(name, "_", "")
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		tag := f.Tag.Get("json")
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == name || strings.EqualFold(f.Name, bare) || strings.EqualFold(f.Name, name) {
			return s.v.Field(i).Interface(), true
		}
	}
	return nil, false
}

func (s structResource) TypeName() string {
	name := s.v.Type().Name()
	if name == "" {
		return "resource"
	}
	return strings.ToLower(name)
}
