// Package field describes the scalar fields of a mapped entity class.
//
// A field is identified by its property name and carries the storage type
// tag of its mapping together with the mapping-level nullable flag:
//
//	field.Descriptor{Name: "title", Type: field.TypeString}
//	field.Descriptor{Name: "id", Type: field.TypeInteger, Identifier: true}
//
// # Storage Types
//
// Mapping tags are parsed with [ParseType]. Tags group into families that the
// generator resolves to one declared type each:
//
//	string, ascii_string, text, guid         string
//	array, simple_array, json                array
//	boolean                                  bool
//	integer, smallint, bigint                int
//	float                                    float
//	date, datetime, datetimetz, time         date/time value
//	*_immutable                              immutable date/time value
//	dateinterval                             interval value
//	object, decimal, binary, blob, unknown   untyped
//
// A missing tag parses to [TypeInvalid], which the generator reports as a
// resolution error.
package field
