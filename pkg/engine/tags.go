package engine

// TagDiff is the minimal change set moving a resource from one tag set to
// another.
type TagDiff struct {
	// ToAdd holds tags present on the desired side only.
	ToAdd TagSet

	// ToRemove holds tags present on the previous side only. A tag whose
	// value changed appears here with its old value and in ToAdd with the new
	// one, so callers must untag before tagging.
	ToRemove TagSet
}

// Empty reports whether the diff requires no remote change.
func (d TagDiff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// ReconcileTags unions each side's sources and returns the set differences.
//
// Sources on one side are merged by plain set union; when two sources carry
// the same key with different values both pairs survive.
func ReconcileTags(previous, desired []TagSet) TagDiff {
	prev := Union(previous...)
	want := Union(desired...)

	return TagDiff{
		ToAdd:    want.Difference(prev),
		ToRemove: prev.Difference(want),
	}
}

// TagsToApply returns the tags to send once ToRemove has been untagged.
// Untagging removes a key whatever its value, so every desired tag whose key
// is in ToRemove is sent again along with ToAdd.
func (d TagDiff) TagsToApply(desired []TagSet) TagSet {
	untagged := make(map[string]struct{}, len(d.ToRemove))
	for t := range d.ToRemove {
		untagged[t.Key] = struct{}{}
	}

	out := Union(d.ToAdd)
	for t := range Union(desired...) {
		if _, ok := untagged[t.Key]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

// UpdateTagSources assembles the previous and desired tag sources of an
// Update invocation: stack tags, system tags and resource tags, with the tags
// read back from the remote resource standing in for the previous resource
// tags.
func UpdateTagSources(req *Request, observed TagSet) (previous, desired []TagSet) {
	previous = []TagSet{
		TagSetFromMap(req.PreviousResourceTags),
		TagSetFromMap(req.PreviousSystemTags),
		observed,
	}
	desired = []TagSet{
		TagSetFromMap(req.DesiredResourceTags),
		TagSetFromMap(req.SystemTags),
		req.Model().TagSet(),
	}
	return previous, desired
}

// CreateTags returns the initial tags of a Create invocation.
func CreateTags(req *Request) TagSet {
	return Union(
		req.Model().TagSet(),
		TagSetFromMap(req.DesiredResourceTags),
		TagSetFromMap(req.SystemTags),
	)
}
