package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/tasksync/internal/checklist"
)

// LinkPolicy decides what linking does with an artifact another entry
// already owns.
type LinkPolicy string

const (
	// LinkSteal unlinks the artifact from its previous entry.
	LinkSteal LinkPolicy = "steal"

	// LinkReject fails with a LINK_CONFLICT error and changes nothing.
	LinkReject LinkPolicy = "reject"
)

// ParseLinkPolicy accepts "steal" or "reject"; empty means steal.
func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch p := LinkPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", LinkSteal:
		return LinkSteal, nil
	case LinkReject:
		return LinkReject, nil
	default:
		return "", fmt.Errorf("unknown link policy %q (want steal or reject)", s)
	}
}

// FindOrCreateEntry returns the entry owning (t, artifactID), creating an
// empty one with an id from ids when none does. created reports which.
func FindOrCreateEntry(reg *checklist.Registry, t checklist.SourceType, artifactID string, ids IDGenerator) (entry *checklist.SyncEntry, created bool) {
	if e := reg.Owner(t, artifactID); e != nil {
		return e, false
	}
	e := checklist.NewSyncEntry(ids.Generate())
	e.Sources[t] = &checklist.SourceRecord{ArtifactID: artifactID}
	reg.Add(e)
	return e, true
}

// LinkedArtifacts maps every source type to the artifact id linked for it
// in one entry, "" where unlinked. It renders unlinked slots as JSON null.
type LinkedArtifacts map[checklist.SourceType]string

func linkedArtifacts(e *checklist.SyncEntry) LinkedArtifacts {
	out := make(LinkedArtifacts, len(checklist.SourceTypes))
	for _, t := range checklist.SourceTypes {
		out[t] = ""
		if rec := e.Source(t); rec != nil {
			out[t] = rec.ArtifactID
		}
	}
	return out
}

func (l LinkedArtifacts) MarshalJSON() ([]byte, error) {
	m := make(map[checklist.SourceType]*string, len(l))
	for t, id := range l {
		if id == "" {
			m[t] = nil
			continue
		}
		id := id
		m[t] = &id
	}
	return json.Marshal(m)
}

// Refs returns the linked artifacts in canonical source type order.
func (l LinkedArtifacts) Refs() []checklist.ArtifactRef {
	var refs []checklist.ArtifactRef
	for _, t := range checklist.SourceTypes {
		if id := l[t]; id != "" {
			refs = append(refs, checklist.ArtifactRef{Type: t, ID: id})
		}
	}
	return refs
}

// ParseArtifactRef parses "type:id" or "type=id".
func ParseArtifactRef(s string) (checklist.ArtifactRef, error) {
	i := strings.IndexAny(s, ":=")
	if i <= 0 || i == len(s)-1 {
		return checklist.ArtifactRef{}, fmt.Errorf("artifact %q: want type:id", s)
	}
	t, err := checklist.ParseSourceType(s[:i])
	if err != nil {
		return checklist.ArtifactRef{}, err
	}
	return checklist.ArtifactRef{Type: t, ID: s[i+1:]}, nil
}
