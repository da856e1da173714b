package gen

// Oracle answers whether a method already exists for a class and must not
// be generated again.
type Oracle struct {
	classes map[string]classMethods
}

type classMethods struct {
	methods   MethodSet
	companion MethodSet
}

// NewOracle returns an empty oracle.
func NewOracle() *Oracle {
	return &Oracle{classes: make(map[string]classMethods)}
}

// Register records the method set of a class and of its previously
// generated companion. A zero companion set means no companion exists.
func (o *Oracle) Register(class string, methods, companion MethodSet) {
	o.classes[class] = classMethods{methods: methods, companion: companion}
}

// Exists reports if method is defined on the class and is not one the
// companion itself declares. Companion methods are regenerated by every
// run, so they never count as existing.
func (o *Oracle) Exists(class, method string) bool {
	c, ok := o.classes[class]
	if !ok {
		return false
	}
	if c.companion.Has(method) {
		return false
	}
	return c.methods.Has(method)
}
