package engine

import (
	"reflect"
	"testing"
)

func tag(k, v string) Tag { return Tag{Key: k, Value: v} }

func TestReconcileTags_Difference(t *testing.T) {
	tests := []struct {
		name       string
		previous   []TagSet
		desired    []TagSet
		wantAdd    []Tag
		wantRemove []Tag
	}{
		{
			name:       "both empty",
			previous:   nil,
			desired:    nil,
			wantAdd:    []Tag{},
			wantRemove: []Tag{},
		},
		{
			name:       "add only",
			previous:   []TagSet{NewTagSet(tag("env", "dev"))},
			desired:    []TagSet{NewTagSet(tag("env", "dev"), tag("team", "wal"))},
			wantAdd:    []Tag{tag("team", "wal")},
			wantRemove: []Tag{},
		},
		{
			name:       "remove only",
			previous:   []TagSet{NewTagSet(tag("env", "dev"), tag("team", "wal"))},
			desired:    []TagSet{NewTagSet(tag("env", "dev"))},
			wantAdd:    []Tag{},
			wantRemove: []Tag{tag("team", "wal")},
		},
		{
			name:       "value change appears on both sides",
			previous:   []TagSet{NewTagSet(tag("env", "dev"))},
			desired:    []TagSet{NewTagSet(tag("env", "prod"))},
			wantAdd:    []Tag{tag("env", "prod")},
			wantRemove: []Tag{tag("env", "dev")},
		},
		{
			name: "sources are unioned per side",
			previous: []TagSet{
				TagSetFromMap(map[string]string{"stack": "a"}),
				TagSetFromMap(map[string]string{"aws:cloudformation:stack-name": "s1"}),
				NewTagSet(tag("owner", "x")),
			},
			desired: []TagSet{
				TagSetFromMap(map[string]string{"stack": "b"}),
				TagSetFromMap(map[string]string{"aws:cloudformation:stack-name": "s1"}),
				NewTagSet(tag("owner", "x")),
			},
			wantAdd:    []Tag{tag("stack", "b")},
			wantRemove: []Tag{tag("stack", "a")},
		},
		{
			name:       "same key with two values in one side keeps both",
			previous:   nil,
			desired:    []TagSet{NewTagSet(tag("k", "1")), NewTagSet(tag("k", "2"))},
			wantAdd:    []Tag{tag("k", "1"), tag("k", "2")},
			wantRemove: []Tag{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ReconcileTags(tt.previous, tt.desired)

			if got := diff.ToAdd.Slice(); !reflect.DeepEqual(got, tt.wantAdd) {
				t.Errorf("Expected ToAdd %v, got %v", tt.wantAdd, got)
			}
			if got := diff.ToRemove.Slice(); !reflect.DeepEqual(got, tt.wantRemove) {
				t.Errorf("Expected ToRemove %v, got %v", tt.wantRemove, got)
			}
		})
	}
}

func TestReconcileTags_SetDifferenceProperty(t *testing.T) {
	p := NewTagSet(tag("a", "1"), tag("b", "2"), tag("c", "3"))
	d := NewTagSet(tag("b", "2"), tag("c", "4"), tag("d", ""))

	diff := ReconcileTags([]TagSet{p}, []TagSet{d})

	if !diff.ToAdd.Equal(d.Difference(p)) {
		t.Errorf("Expected ToAdd == D - P, got %v", diff.ToAdd.Slice())
	}
	if !diff.ToRemove.Equal(p.Difference(d)) {
		t.Errorf("Expected ToRemove == P - D, got %v", diff.ToRemove.Slice())
	}
}

func TestReconcileTags_Idempotent(t *testing.T) {
	p := NewTagSet(tag("a", "1"), tag("b", "2"))

	diff := ReconcileTags([]TagSet{p}, []TagSet{p})
	if !diff.Empty() {
		t.Fatalf("Expected empty diff for equal sides, got add=%v remove=%v", diff.ToAdd.Slice(), diff.ToRemove.Slice())
	}
}

// applyByKey models the remote: untag drops every tag with a listed key,
// then tag upserts by key.
func applyByKey(remote TagSet, diff TagDiff, desired []TagSet) TagSet {
	byKey := map[string]string{}
	for tg := range remote {
		byKey[tg.Key] = tg.Value
	}
	for _, k := range diff.ToRemove.Keys() {
		delete(byKey, k)
	}
	for tg := range diff.TagsToApply(desired) {
		byKey[tg.Key] = tg.Value
	}
	return TagSetFromMap(byKey)
}

func TestReconcileTags_ApplyThenRecompute(t *testing.T) {
	tests := []struct {
		name     string
		remote   TagSet
		previous []TagSet
		desired  TagSet
	}{
		{
			name:     "value change and removal",
			remote:   NewTagSet(tag("env", "dev"), tag("old", "x")),
			previous: []TagSet{NewTagSet(tag("env", "dev"), tag("old", "x"))},
			desired:  NewTagSet(tag("env", "prod"), tag("new", "y")),
		},
		{
			name:   "desired value already observed with stale stack value",
			remote: NewTagSet(tag("env", "new")),
			previous: []TagSet{
				NewTagSet(tag("env", "old")),
				NewTagSet(tag("env", "new")),
			},
			desired: NewTagSet(tag("env", "new")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desired := []TagSet{tt.desired}
			diff := ReconcileTags(tt.previous, desired)

			applied := applyByKey(tt.remote, diff, desired)
			if !applied.Equal(tt.desired) {
				t.Fatalf("Expected applied set %v, got %v", tt.desired.Slice(), applied.Slice())
			}

			again := ReconcileTags([]TagSet{applied}, desired)
			if !again.Empty() {
				t.Errorf("Expected second reconcile to be empty, got add=%v remove=%v", again.ToAdd.Slice(), again.ToRemove.Slice())
			}
		})
	}
}

func TestTagDiff_TagsToApply(t *testing.T) {
	diff := TagDiff{
		ToAdd:    NewTagSet(tag("new", "y")),
		ToRemove: NewTagSet(tag("env", "old"), tag("gone", "1")),
	}
	desired := []TagSet{NewTagSet(tag("env", "new"), tag("keep", "1")), NewTagSet(tag("new", "y"))}

	got := diff.TagsToApply(desired)
	want := NewTagSet(tag("env", "new"), tag("new", "y"))
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want.Slice(), got.Slice())
	}
}

func TestUpdateTagSources(t *testing.T) {
	req := &Request{
		DesiredResourceState: &ResourceModel{Name: "ws", Tags: []Tag{tag("model", "1")}},
		DesiredResourceTags:  map[string]string{"stack": "new"},
		PreviousResourceTags: map[string]string{"stack": "old"},
		SystemTags:           map[string]string{"aws:cloudformation:stack-id": "id"},
		PreviousSystemTags:   map[string]string{"aws:cloudformation:stack-id": "id"},
	}
	observed := NewTagSet(tag("model", "0"))

	previous, desired := UpdateTagSources(req, observed)
	diff := ReconcileTags(previous, desired)

	wantAdd := []Tag{tag("model", "1"), tag("stack", "new")}
	wantRemove := []Tag{tag("model", "0"), tag("stack", "old")}

	if got := diff.ToAdd.Slice(); !reflect.DeepEqual(got, wantAdd) {
		t.Errorf("Expected ToAdd %v, got %v", wantAdd, got)
	}
	if got := diff.ToRemove.Slice(); !reflect.DeepEqual(got, wantRemove) {
		t.Errorf("Expected ToRemove %v, got %v", wantRemove, got)
	}
}

func TestCreateTags(t *testing.T) {
	req := &Request{
		DesiredResourceState: &ResourceModel{Name: "ws", Tags: []Tag{tag("a", "1")}},
		DesiredResourceTags:  map[string]string{"b": "2"},
		SystemTags:           map[string]string{"c": "3"},
	}

	got := CreateTags(req).Slice()
	want := []Tag{tag("a", "1"), tag("b", "2"), tag("c", "3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestTagSet_Keys(t *testing.T) {
	s := NewTagSet(tag("b", "1"), tag("a", "1"), tag("a", "2"))

	got := s.Keys()
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
