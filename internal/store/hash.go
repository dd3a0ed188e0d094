package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeDocumentHash computes a deterministic hash over the encoded form of
// a document: its includes and every symbol row in preorder. Two documents
// with the same hash decode to the same symbol tree.
func ComputeDocumentHash(incs []*Include, rows []*Symbol) string {
	h := sha256.New()

	for _, inc := range incs {
		fmt.Fprintf(h, "include:%d:%s:%d\n", inc.Ordinal, inc.Path, inc.Line)
	}

	for _, r := range rows {
		var parent int64
		if r.ParentID != nil {
			parent = *r.ParentID
		}
		fmt.Fprintf(h, "symbol:%d:%d:%d:%s:%s:%s:%d:%d:%s:%s:%s\n",
			r.ID, parent, r.Ordinal, r.Kind, r.Name, r.Type,
			r.Line, r.Col, r.Storage, r.Visibility, marshalExtra(r.Extra))
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
