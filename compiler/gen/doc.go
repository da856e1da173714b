// Package gen generates companion traits for mapped entity classes.
//
// A companion holds the accessors, association mutators and constructor
// an entity is missing. It is regenerated on every run, while methods the
// developer wrote on the class itself are never generated again.
//
// # Architecture
//
// Generation for one class follows this flow:
//
//	MetadataProvider (mapping, validation, database)
//	        ↓
//	   schema.Class
//	        ↓
//	   Reflector + Oracle (which methods already exist)
//	        ↓
//	   resolver (declared type and optionality)
//	        ↓
//	   Renderer (one text block per template)
//	        ↓
//	   Artifact (written atomically next to the class)
//
// # Interface Hierarchy
//
// Dialects are composed from small interfaces:
//
//	Dialect
//	├── Name() string
//	├── TypeMapper (field, class and collection types)
//	├── Renderer (template id + params → text)
//	├── Reflector (class methods, properties, source path)
//	└── Naming (method names, companion suffix)
//
//	Optional capabilities, detected by type assertion:
//	├── Finalizer (post-process the full artifact)
//	├── Locator (list classes of a namespace)
//	├── PackageScoped (companions must stay in the class package)
//	└── constraint.Provider (constraints read from the source)
//
// # Error Handling
//
// A failing class aborts only that class. Its error is a ClassError
// carrying the phase it failed in:
//
//	report, err := g.Generate(ctx, `Blog\Entity`)
//	if err != nil {
//	    if gen.IsNotFound(err) {
//	        // Nothing is mapped under that name.
//	    }
//	    return err
//	}
//	if err := report.Err(); err != nil {
//	    // One or more classes failed.
//	}
//
// # Configuration
//
//	g, err := gen.NewGenerator(provider, php.NewDialect(root),
//	    gen.WithPathSegment("Generated"),
//	    gen.WithPolicy(gen.PolicyStrict),
//	    gen.WithSingularizer(gen.InflectSingular),
//	)
package gen
