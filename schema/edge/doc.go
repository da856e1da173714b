// Package edge describes the associations of a mapped entity class.
//
// Four relation types are supported:
//
//	O2O  one-to-one     get/set accessors
//	M2O  many-to-one    get/set accessors
//	O2M  one-to-many    collection get/add/remove
//	M2M  many-to-many   collection get/add/remove
//
// The inverse field of a descriptor is the inversedBy side when the
// descriptor is the owning side of the relation, and the mappedBy side
// otherwise:
//
//	edge.Descriptor{Name: "tags", Kind: edge.M2M, Target: `Blog\Entity\Tag`, Owning: true, Inverse: "posts"}
//
// Join-column nullability is optional in mappings; an absent value is
// treated as nullable.
package edge
