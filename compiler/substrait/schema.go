package substrait

import "github.com/ColinClark/mlql/schema"

func typeFor(dt schema.DataType) Type {
	p := &TypeParam{Nullability: "NULLABILITY_NULLABLE"}
	switch dt {
	case schema.Int32:
		return Type{I32: p}
	case schema.Int64:
		return Type{I64: p}
	case schema.Float32:
		return Type{Fp32: p}
	case schema.Float64:
		return Type{Fp64: p}
	case schema.String:
		return Type{String_: p}
	case schema.Bool:
		return Type{Bool: p}
	case schema.Date:
		return Type{Date: p}
	case schema.Timestamp:
		return Type{Timestamp: p}
	case schema.Decimal:
		return Type{Decimal: p}
	default:
		return Type{String_: p}
	}
}

func namedStructFor(ts schema.TableSchema) *NamedStruct {
	names := make([]string, len(ts.Columns))
	types := make([]Type, len(ts.Columns))
	for i, c := range ts.Columns {
		names[i] = c.Name
		types[i] = typeFor(c.DataType)
	}
	return &NamedStruct{Names: names, Struct: &StructType{Types: types}}
}
