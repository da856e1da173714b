// Package schema holds the mapping descriptors that drive generation.
//
// A [Class] is read-only to the generator and lives for one generation
// pass. Its descriptors come from the subpackages:
//
//   - [field]: scalar fields with storage type and mapping nullability
//   - [edge]: associations with relation kind, target and inverse side
//   - [constraint]: validation constraints, supplied separately per field
//
// Class names use the backslash namespace separator:
//
//	c := &schema.Class{Name: `Blog\Entity\Post`}
//	c.ShortName() // Post
//	c.Namespace() // Blog\Entity
package schema
