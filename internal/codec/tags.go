package codec

// ScalarTag names the encoding used for one leaf column.
type ScalarTag int

const (
	// TagString stores the value as-is as a SQL TEXT column.
	TagString ScalarTag = iota
	// TagIntStrict stores a required integer; a missing value is a schema error.
	TagIntStrict
	// TagIntNullable stores an optional integer.
	TagIntNullable
	// TagBool stores a 0/1 integer.
	TagBool
	// TagBigIntString stores a 64-bit integer (e.g. a snowflake) as a SQL
	// INTEGER column, decoding back to a decimal string (spec.md §9 Open
	// Question resolution: DESIGN.md #1).
	TagBigIntString
	// TagFloat stores a floating point value.
	TagFloat
	// TagBase64 stores raw bytes, base64-encoded on the external boundary.
	TagBase64
	// TagImageHash stores Discord's avatar/icon hash as a packed 17-byte
	// value when it matches the known format, else verbatim as a string.
	TagImageHash
	// TagIDArray stores a big-endian-packed u64 sequence.
	TagIDArray
	// TagTimestamp stores milliseconds since epoch; decodes to an ISO-8601
	// string.
	TagTimestamp
	// TagEmoji stores either a custom emoji snowflake or a short unicode
	// string.
	TagEmoji
	// TagJSON stores an arbitrary JSON-serializable value as TEXT.
	TagJSON
	// TagNullSentinel stores nothing; the column always decodes to null.
	TagNullSentinel
	// TagOverwrites stores a permission-overwrite array as fixed 25-byte
	// packed records.
	TagOverwrites
)

// NullPolicy controls how a storage-null value is surfaced on decode, and
// what counts as "the neutral value" for extras-bag omission.
type NullPolicy int

const (
	// Absent: a storage-null means the field is omitted entirely on decode.
	Absent NullPolicy = iota
	// Null: a storage-null decodes to an explicit null field.
	Null
	// EmptyArray: a storage-null decodes to an empty array.
	EmptyArray
)

// FieldKind distinguishes the four things a schema entry can be.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldSub
	FieldExtra
	FieldIgnore
)
