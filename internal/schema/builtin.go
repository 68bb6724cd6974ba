package schema

// addBuiltinTypes registers the five spec-defined scalars. Composed SDL
// usually redeclares some of them; redeclarations simply overwrite these.
func addBuiltinTypes(s *Schema) {
	for _, scalar := range []struct{ name, description string }{
		{"Int", "The `Int` scalar type represents non-fractional signed whole numeric values."},
		{"Float", "The `Float` scalar type represents signed double-precision fractional values."},
		{"String", "The `String` scalar type represents textual data, represented as UTF-8 character sequences."},
		{"Boolean", "The `Boolean` scalar type represents `true` or `false`."},
		{"ID", "The `ID` scalar type represents a unique identifier."},
	} {
		s.Types[scalar.name] = &Type{
			Name:        scalar.name,
			Kind:        TypeKindScalar,
			Description: scalar.description,
		}
	}
}
