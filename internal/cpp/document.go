package cpp

import "sort"

// Include is one resolved #include of a document.
type Include struct {
	FileName string
	Line     int
}

// Document is the parser's output for one file: its global namespace and
// its resolved includes.
type Document struct {
	fileName        string
	control         *Control
	globalNamespace *Namespace
	includes        []Include
}

// NewDocument returns an empty document whose global namespace is ready
// for members.
func NewDocument(fileName string, control *Control) *Document {
	if control == nil {
		control = NewControl()
	}
	return &Document{
		fileName:        fileName,
		control:         control,
		globalNamespace: NewNamespace(Location{File: fileName}, nil),
	}
}

func (d *Document) FileName() string            { return d.fileName }
func (d *Document) Control() *Control           { return d.control }
func (d *Document) GlobalNamespace() *Namespace { return d.globalNamespace }
func (d *Document) Includes() []Include         { return d.includes }

// AddInclude records a resolved include. Including the same file twice
// records it twice; consumers deduplicate.
func (d *Document) AddInclude(fileName string, line int) {
	d.includes = append(d.includes, Include{FileName: fileName, Line: line})
}

// IncludedFiles returns the resolved file names of the document's includes in
// source order.
func (d *Document) IncludedFiles() []string {
	files := make([]string, 0, len(d.includes))
	for _, inc := range d.includes {
		files = append(files, inc.FileName)
	}
	return files
}

// Snapshot is an immutable set of documents keyed by file name. Iteration
// order is sorted by file name and is the order every build over the
// snapshot uses.
type Snapshot struct {
	files []string
	docs  map[string]*Document
}

// NewSnapshot builds a snapshot. When two documents share a file name the
// later one wins.
func NewSnapshot(docs ...*Document) *Snapshot {
	s := &Snapshot{docs: make(map[string]*Document, len(docs))}
	for _, d := range docs {
		if d == nil {
			continue
		}
		s.docs[d.fileName] = d
	}
	s.files = make([]string, 0, len(s.docs))
	for f := range s.docs {
		s.files = append(s.files, f)
	}
	sort.Strings(s.files)
	return s
}

// Document returns the document for file, or nil.
func (s *Snapshot) Document(file string) *Document {
	if s == nil {
		return nil
	}
	return s.docs[file]
}

func (s *Snapshot) Contains(file string) bool {
	return s.Document(file) != nil
}

// Len returns the number of documents.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.files)
}

// Files returns the file names in iteration order.
func (s *Snapshot) Files() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.files...)
}

// Documents returns the documents in iteration order.
func (s *Snapshot) Documents() []*Document {
	if s == nil {
		return nil
	}
	docs := make([]*Document, len(s.files))
	for i, f := range s.files {
		docs[i] = s.docs[f]
	}
	return docs
}

// Each calls fn for every document in iteration order until fn returns
// false.
func (s *Snapshot) Each(fn func(*Document) bool) {
	if s == nil {
		return
	}
	for _, f := range s.files {
		if !fn(s.docs[f]) {
			return
		}
	}
}

// With returns a new snapshot with docs added or replaced. s is unchanged.
func (s *Snapshot) With(docs ...*Document) *Snapshot {
	return NewSnapshot(append(s.Documents(), docs...)...)
}

// Without returns a new snapshot with the named files removed.
func (s *Snapshot) Without(files ...string) *Snapshot {
	drop := make(map[string]bool, len(files))
	for _, f := range files {
		drop[f] = true
	}
	var keep []*Document
	for _, d := range s.Documents() {
		if !drop[d.fileName] {
			keep = append(keep, d)
		}
	}
	return NewSnapshot(keep...)
}
