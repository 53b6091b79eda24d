// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors returned by Header bookkeeping and by the rename
// methods on Reference and ReadGroup. These stay on the
// standard errors package, rather than github.com/pkg/errors used
// elsewhere in this package, so that callers comparing them with
// reflect.DeepEqual against a literal errors.New value keep working.
var (
	errDupReference     = errors.New("sam: duplicate reference name")
	errDupReadGroup     = errors.New("sam: duplicate read group name")
	errDupProgram       = errors.New("sam: duplicate program name")
	errUsedReference    = errors.New("sam: reference already used")
	errUsedReadGroup    = errors.New("sam: read group already used")
	errUsedProgram      = errors.New("sam: program already used")
	errInvalidReference = errors.New("sam: reference not owned by header")
	errInvalidReadGroup = errors.New("sam: read group not owned by header")
	errInvalidProgram   = errors.New("sam: program not owned by header")
	errBadLen           = errors.New("sam: reference length out of range")
	errNameExists       = errors.New("sam: name exists")
)

// SortOrder indicates the sort order of a SAM or BAM file.
type SortOrder int

const (
	UnknownOrder SortOrder = iota
	Unsorted
	QueryName
	Coordinate
)

var (
	sortOrder = [...]string{
		UnknownOrder: "unknown",
		Unsorted:     "unsorted",
		QueryName:    "queryname",
		Coordinate:   "coordinate",
	}
	sortOrderMap = map[string]SortOrder{
		"unknown":    UnknownOrder,
		"unsorted":   Unsorted,
		"queryname":  QueryName,
		"coordinate": Coordinate,
	}
)

// String returns the string representation of a SortOrder.
func (so SortOrder) String() string {
	if so < Unsorted || so > Coordinate {
		return sortOrder[UnknownOrder]
	}
	return sortOrder[so]
}

// GroupOrder indicates the grouping order of a SAM or BAM file.
type GroupOrder int

const (
	GroupUnspecified GroupOrder = iota
	GroupNone
	GroupQuery
	GroupReference
)

var (
	groupOrder = [...]string{
		GroupUnspecified: "none",
		GroupNone:        "none",
		GroupQuery:       "query",
		GroupReference:   "reference",
	}
	groupOrderMap = map[string]GroupOrder{
		"none":      GroupNone,
		"query":     GroupQuery,
		"reference": GroupReference,
	}
)

// String returns the string representation of a GroupOrder.
func (g GroupOrder) String() string {
	if g < GroupNone || g > GroupReference {
		return groupOrder[GroupUnspecified]
	}
	return groupOrder[g]
}

type set map[string]int32

// Header holds the metadata that precedes an alignment stream: the file
// format version and sort/group order, the dictionary of References the
// records in the stream align against, and the read groups and programs
// that produced them.
type Header struct {
	Version    string
	SortOrder  SortOrder
	GroupOrder GroupOrder
	otherTags  []tagPair

	refs       []*Reference
	rgs        []*ReadGroup
	progs      []*Program
	seenRefs   set
	seenGroups set
	seenProgs  set

	Comments []string
}

type tagPair struct {
	tag   Tag
	value string
}

// NewHeader returns a new Header based on the given text and list
// of References. If there is a conflict between the text and the
// given References NewHeader will return a non-nil error.
func NewHeader(text []byte, r []*Reference) (*Header, error) {
	var err error
	h := &Header{
		refs:       r,
		seenRefs:   set{},
		seenGroups: set{},
		seenProgs:  set{},
	}
	for i, r := range h.refs {
		if r.owner != nil || r.id >= 0 {
			return nil, errUsedReference
		}
		r.owner = h
		r.id = int32(i)
	}
	if text != nil {
		err = h.UnmarshalText(text)
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Tags applies the function fn to each of the tag-value pairs of the Header.
// The SO and GO tags are only used if they are set to the non-default values.
// The function fn must not add or delete tags held by the receiver during
// iteration.
func (h *Header) Tags(fn func(t Tag, value string)) {
	if fn == nil {
		return
	}
	fn(versionTag, h.Version)
	if h.SortOrder != UnknownOrder {
		fn(sortOrderTag, h.SortOrder.String())
	}
	if h.GroupOrder != GroupUnspecified {
		fn(groupOrderTag, h.GroupOrder.String())
	}
	for _, tp := range h.otherTags {
		fn(tp.tag, tp.value)
	}
}

// Get returns the string representation of the value associated with the
// given header line tag. If the tag is not present the empty string is returned.
func (h *Header) Get(t Tag) string {
	switch t {
	case versionTag:
		return h.Version
	case sortOrderTag:
		return h.SortOrder.String()
	case groupOrderTag:
		return h.GroupOrder.String()
	}
	for _, tp := range h.otherTags {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// Set sets the value associated with the given header line tag to the specified
// value. If value is the empty string and the tag may be absent, it is deleted
// or set to a meaningful default (SO:UnknownOrder and GO:GroupUnspecified),
// otherwise an error is returned.
func (h *Header) Set(t Tag, value string) error {
	switch t {
	case versionTag:
		if value == "" {
			return errBadHeader
		}
		h.Version = value
	case sortOrderTag:
		if value == "" {
			h.SortOrder = UnknownOrder
			return nil
		}
		sortOrder, ok := sortOrderMap[value]
		if !ok {
			return errBadHeader
		}
		h.SortOrder = sortOrder
	case groupOrderTag:
		if value == "" {
			h.GroupOrder = GroupUnspecified
			return nil
		}
		groupOrder, ok := groupOrderMap[value]
		if !ok {
			return errBadHeader
		}
		h.GroupOrder = groupOrder
	default:
		if value == "" {
			for i, tp := range h.otherTags {
				if t == tp.tag {
					copy(h.otherTags[i:], h.otherTags[i+1:])
					h.otherTags = h.otherTags[:len(h.otherTags)-1]
					return nil
				}
			}
		} else {
			for i, tp := range h.otherTags {
				if t == tp.tag {
					h.otherTags[i].value = value
					return nil
				}
			}
			h.otherTags = append(h.otherTags, tagPair{tag: t, value: value})
		}
	}
	return nil
}

// Clone returns a deep copy of the receiver.
func (h *Header) Clone() *Header {
	c := &Header{
		Version:    h.Version,
		SortOrder:  h.SortOrder,
		GroupOrder: h.GroupOrder,
		otherTags:  append([]tagPair(nil), h.otherTags...),
		Comments:   append([]string(nil), h.Comments...),
		seenRefs:   make(set, len(h.seenRefs)),
		seenGroups: make(set, len(h.seenGroups)),
		seenProgs:  make(set, len(h.seenProgs)),
	}
	if len(h.refs) != 0 {
		c.refs = make([]*Reference, len(h.refs))
	}
	if len(h.rgs) != 0 {
		c.rgs = make([]*ReadGroup, len(h.rgs))
	}
	if len(h.progs) != 0 {
		c.progs = make([]*Program, len(h.progs))
	}

	for i, r := range h.refs {
		if r == nil {
			continue
		}
		c.refs[i] = new(Reference)
		*c.refs[i] = *r
		c.refs[i].owner = c
	}
	for i, r := range h.rgs {
		c.rgs[i] = new(ReadGroup)
		*c.rgs[i] = *r
		c.rgs[i].owner = c
	}
	for i, p := range h.progs {
		c.progs[i] = new(Program)
		*c.progs[i] = *p
		c.progs[i].owner = c
	}
	for k, v := range h.seenRefs {
		c.seenRefs[k] = v
	}
	for k, v := range h.seenGroups {
		c.seenGroups[k] = v
	}
	for k, v := range h.seenProgs {
		c.seenProgs[k] = v
	}

	return c
}

// MergeHeaders returns a new Header resulting from the merge of the
// source Headers, and a mapping between the references in the source
// and the References in the returned Header. Sort order is set to
// unknown and group order is set to none. If a single Header is passed
// to MergeHeaders, the mapping between source and destination headers,
// reflink, is returned as nil.
// The returned Header contains the read groups and programs of the
// first Header in src.
func MergeHeaders(src []*Header) (h *Header, reflinks [][]*Reference, err error) {
	switch len(src) {
	case 0:
		return nil, nil, nil
	case 1:
		return src[0], nil, nil
	}
	reflinks = make([][]*Reference, len(src))
	h = src[0].Clone()
	h.SortOrder = UnknownOrder
	h.GroupOrder = GroupUnspecified
	for i, add := range src {
		if i == 0 {
			reflinks[i] = h.refs
			continue
		}
		links := make([]*Reference, len(add.refs))
		for id, r := range add.refs {
			r = r.Clone()
			err := h.AddReference(r)
			if err != nil {
				return nil, nil, err
			}
			if r.owner != h {
				// r was not actually added, so use the ref
				// that h owns.
				for _, hr := range h.refs {
					if equalRefs(r, hr) {
						r = hr
						break
					}
				}
			}
			links[id] = r
		}
		reflinks[i] = links
	}

	return h, reflinks, nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h *Header) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if h.Version != "" {
		if h.GroupOrder == GroupUnspecified {
			fmt.Fprintf(&buf, "@HD\tVN:%s\tSO:%s", h.Version, h.SortOrder)
		} else {
			fmt.Fprintf(&buf, "@HD\tVN:%s\tSO:%s\tGO:%s", h.Version, h.SortOrder, h.GroupOrder)
		}
		for _, tp := range h.otherTags {
			fmt.Fprintf(&buf, "\t%s:%s", tp.tag, tp.value)
		}
		buf.WriteByte('\n')
	}
	for _, r := range h.refs {
		fmt.Fprintf(&buf, "%s\n", r)
	}
	for _, rg := range h.rgs {
		fmt.Fprintf(&buf, "%s\n", rg)
	}
	for _, p := range h.progs {
		fmt.Fprintf(&buf, "%s\n", p)
	}
	for _, co := range h.Comments {
		fmt.Fprintf(&buf, "@CO\t%s\n", co)
	}
	return buf.Bytes(), nil
}

// MarshalBinary implements the encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	b := &bytes.Buffer{}
	err := h.EncodeBinary(b)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// EncodeBinary writes a binary encoding of the Header to the given io.Writer.
// The format of the encoding is defined in the SAM specification, section 4.2.
func (h *Header) EncodeBinary(w io.Writer) error {
	wb := &errWriter{w: w}

	binary.Write(wb, binary.LittleEndian, bamMagic)
	text, _ := h.MarshalText()
	binary.Write(wb, binary.LittleEndian, int32(len(text)))
	wb.Write(text)
	binary.Write(wb, binary.LittleEndian, int32(len(h.refs)))

	if !validInt32(len(h.refs)) {
		return errors.New("sam: value out of range")
	}
	var name []byte
	for _, r := range h.refs {
		name = append(name, []byte(r.name)...)
		name = append(name, 0)
		binary.Write(wb, binary.LittleEndian, int32(len(name)))
		wb.Write(name)
		name = name[:0]
		binary.Write(wb, binary.LittleEndian, r.lRef)
	}
	if wb.err != nil {
		return wb.err
	}

	return nil
}

type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	var n int
	n, w.err = w.w.Write(p)
	return n, w.err
}

// Validate checks r against the Header for record validity according to the
// SAM specification:
//
//   - a program auxiliary field must refer to a program listed in the header
//   - a read group auxiliary field must refer to a read group listed in the
//     header and these must agree on platform unit and library.
func (h *Header) Validate(r *Record) error {
	rp := r.AuxFields.Get(programTag)
	found := false
	for _, hp := range h.Progs() {
		if hp.UID() == rp.Value() {
			found = true
			break
		}
	}
	if !found && len(h.Progs()) != 0 {
		return fmt.Errorf("sam: program uid not found: %v", rp.Value())
	}

	rg := r.AuxFields.Get(readGroupTag)
	found = false
	for _, hg := range h.RGs() {
		if hg.Name() == rg.Value() {
			rPlatformUnit := r.AuxFields.Get(platformUnitTag).Value()
			if rPlatformUnit != hg.PlatformUnit() {
				return fmt.Errorf("sam: mismatched platform for read group %s: %v != %v", hg.Name(), rPlatformUnit, hg.platformUnit)
			}
			rLibrary := r.AuxFields.Get(libraryTag).Value()
			if rLibrary != hg.Library() {
				return fmt.Errorf("sam: mismatched library for read group %s: %v != %v", hg.Name(), rLibrary, hg.library)
			}
			found = true
			break
		}
	}
	if !found && len(h.RGs()) != 0 {
		return fmt.Errorf("sam: read group not found: %v", rg.Value())
	}

	return nil
}

// Refs returns the Header's list of References. The returned slice
// should not be altered.
func (h *Header) Refs() []*Reference {
	return h.refs
}

// RGs returns the Header's list of ReadGroups. The returned slice
// should not be altered.
func (h *Header) RGs() []*ReadGroup {
	return h.rgs
}

// Progs returns the Header's list of Programs. The returned slice
// should not be altered.
func (h *Header) Progs() []*Program {
	return h.progs
}

// AddReference adds r to the Header.
func (h *Header) AddReference(r *Reference) error {
	if dupID, dup := h.seenRefs[r.name]; dup {
		er := h.refs[dupID]
		if equalRefs(er, r) {
			return nil
		} else if !equalRefs(r, &Reference{id: -1, name: er.name, lRef: er.lRef}) {
			return errDupReference
		}
		if r.md5 == "" {
			r.md5 = er.md5
		}
		if r.assemID == "" {
			r.assemID = er.assemID
		}
		if r.species == "" {
			r.species = er.species
		}
		if r.uri == nil {
			r.uri = er.uri
		}
		if r.otherTags == nil {
			r.otherTags = er.otherTags
		}
		h.refs[dupID] = r
		return nil
	}
	if r.owner != nil || r.id >= 0 {
		return errUsedReference
	}
	r.owner = h
	r.id = int32(len(h.refs))
	h.seenRefs[r.name] = r.id
	h.refs = append(h.refs, r)
	return nil
}

// RemoveReference removes r from the Header and makes it
// available to add to another Header.
func (h *Header) RemoveReference(r *Reference) error {
	if r.id < 0 || int(r.id) >= len(h.refs) || h.refs[r.id] != r {
		return errInvalidReference
	}
	h.refs = append(h.refs[:r.id], h.refs[r.id+1:]...)
	for i := range h.refs[r.id:] {
		h.refs[i+int(r.id)].id--
	}
	r.id = -1
	r.owner = nil
	delete(h.seenRefs, r.name)
	return nil
}

// AddReadGroup adds rg to the Header.
func (h *Header) AddReadGroup(rg *ReadGroup) error {
	if _, ok := h.seenGroups[rg.name]; ok {
		return errDupReadGroup
	}
	if rg.owner != nil || rg.id >= 0 {
		return errUsedReadGroup
	}
	rg.owner = h
	rg.id = int32(len(h.rgs))
	h.seenGroups[rg.name] = rg.id
	h.rgs = append(h.rgs, rg)
	return nil
}

// RemoveReadGroup removes rg from the Header and makes it
// available to add to another Header.
func (h *Header) RemoveReadGroup(rg *ReadGroup) error {
	if rg.id < 0 || int(rg.id) >= len(h.rgs) || h.rgs[rg.id] != rg {
		return errInvalidReadGroup
	}
	h.rgs = append(h.rgs[:rg.id], h.rgs[rg.id+1:]...)
	for i := range h.rgs[rg.id:] {
		h.rgs[i+int(rg.id)].id--
	}
	rg.id = -1
	rg.owner = nil
	delete(h.seenGroups, rg.name)
	return nil
}

// AddProgram adds p to the Header.
func (h *Header) AddProgram(p *Program) error {
	if _, ok := h.seenProgs[p.uid]; ok {
		return errDupProgram
	}
	if p.owner != nil || p.id >= 0 {
		return errUsedProgram
	}
	p.owner = h
	p.id = int32(len(h.progs))
	h.seenProgs[p.uid] = p.id
	h.progs = append(h.progs, p)
	return nil
}

// RemoveProgram removes p from the Header and makes it
// available to add to another Header.
func (h *Header) RemoveProgram(p *Program) error {
	if p.id < 0 || int(p.id) >= len(h.progs) || h.progs[p.id] != p {
		return errInvalidProgram
	}
	h.progs = append(h.progs[:p.id], h.progs[p.id+1:]...)
	for i := range h.progs[p.id:] {
		h.progs[i+int(p.id)].id--
	}
	p.id = -1
	p.owner = nil
	delete(h.seenProgs, p.uid)
	return nil
}
