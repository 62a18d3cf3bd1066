// Package fieldmeta supplies the field metadata predicates are compiled
// against.
//
// A Provider answers one question: does a field with this name exist, and
// which column does it map to. Three sources build providers:
//
//   - Registry reflects over Go structs, reading `db` tags
//   - ParseCUE / LoadCUE read a CUE entity schema
//   - LoadYAML reads the same schema written as YAML
//
// Schema files share one shape:
//
//	entities: User: {
//		table: "users"
//		fields: {
//			Id:      {column: "id", type: int}
//			Account: string
//		}
//	}
//
// A field is either a bare type or a struct with column and type. A field
// without a column maps to a column of the same name.
package fieldmeta
