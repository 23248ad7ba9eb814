package querybuilder

// InsertRows holds one slice of values per row
type InsertRows [][]interface{}
