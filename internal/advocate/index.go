package advocate

// index is an immutable snapshot of a loaded roster with its lookup tables.
// It is rebuilt on every load and never persisted.
type index struct {
	records      []Record
	enrolled     []Record
	byEnrollment map[string]Record
	byName       map[string][]Record
}

func buildIndex(records []Record) *index {
	idx := &index{
		records:      records,
		byEnrollment: make(map[string]Record, len(records)),
		byName:       make(map[string][]Record, len(records)),
	}
	for _, r := range records {
		if r.HasEnrollment() {
			idx.enrolled = append(idx.enrolled, r)
			// Later duplicates overwrite earlier ones.
			if key := NormalizeEnrollment(r.EnrollmentNumber); key != "" {
				idx.byEnrollment[key] = r
			}
		}
		if key := NormalizeName(r.Name); key != "" {
			idx.byName[key] = append(idx.byName[key], r)
		}
	}
	return idx
}

func (idx *index) size() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

func (idx *index) lookupEnrollment(enrollment string) (Record, bool) {
	key := NormalizeEnrollment(enrollment)
	if key == "" {
		return Record{}, false
	}
	r, ok := idx.byEnrollment[key]
	return r, ok
}

func (idx *index) lookupName(name string) (Record, bool) {
	key := NormalizeName(name)
	if key == "" {
		return Record{}, false
	}
	hits := idx.byName[key]
	if len(hits) == 0 {
		return Record{}, false
	}
	return hits[0], true
}
