package schema

// GroupFieldType is the field type that marks a repeating group counter.
const GroupFieldType = "NUMINGROUP"

// Dictionary resolves field tags, names, types and enumerated values.
// It is read-only once returned by NewDictionary or Build.
type Dictionary struct {
	names map[int]string
	types map[int]string
	tags  map[string]int
	enums map[int]map[string]string
}

// NewDictionary merges the field tables of docs in order. Later documents add
// to and override entries of earlier ones.
func NewDictionary(docs ...*Document) *Dictionary {
	d := &Dictionary{
		names: make(map[int]string),
		types: make(map[int]string),
		tags:  make(map[string]int),
		enums: make(map[int]map[string]string),
	}
	for _, doc := range docs {
		for _, f := range doc.Fields {
			d.names[f.Tag] = f.Name
			d.types[f.Tag] = f.Type
			d.tags[f.Name] = f.Tag
			if len(f.Values) == 0 {
				continue
			}
			values, ok := d.enums[f.Tag]
			if !ok {
				values = make(map[string]string, len(f.Values))
				d.enums[f.Tag] = values
			}
			for _, v := range f.Values {
				values[v.Code] = v.Description
			}
		}
	}
	return d
}

// FieldName returns the name of tag.
func (d *Dictionary) FieldName(tag int) (string, bool) {
	name, ok := d.names[tag]
	return name, ok
}

// FieldType returns the declared type of tag.
func (d *Dictionary) FieldType(tag int) (string, bool) {
	typ, ok := d.types[tag]
	return typ, ok
}

// Tag returns the tag of the field called name.
func (d *Dictionary) Tag(name string) (int, bool) {
	tag, ok := d.tags[name]
	return tag, ok
}

// EnumDescription returns the description of value for tag, if tag has an
// enumerated value table containing it.
func (d *Dictionary) EnumDescription(tag int, value string) (string, bool) {
	desc, ok := d.enums[tag][value]
	return desc, ok
}

// IsGroup reports whether tag is a repeating group counter.
func (d *Dictionary) IsGroup(tag int) bool {
	return d.types[tag] == GroupFieldType
}

// Len returns the number of known fields.
func (d *Dictionary) Len() int {
	return len(d.names)
}
