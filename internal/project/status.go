package project

import (
	"github.com/roach88/immutag/internal/registry"
)

// DocumentStatus summarizes one document of the project.
type DocumentStatus struct {
	Identity    string `json:"identity,omitempty"`
	Path        string `json:"path"`
	State       string `json:"state"`
	Entries     int    `json:"entries"`
	Provisioned bool   `json:"provisioned"`
	Error       string `json:"error,omitempty"`
}

// Healthy reports whether the document can be mutated.
func (s DocumentStatus) Healthy() bool {
	return s.Error == "" && s.State == registry.Valid.String()
}

// Status inspects the registry document and the metadata document of
// every identity it lists. The registry comes first, identities follow in
// registry order. Only a failure to read the registry itself is returned
// as an error.
func (p *Project) Status() ([]DocumentStatus, error) {
	doc, err := p.openRegistry()
	if err != nil {
		return nil, err
	}

	out := []DocumentStatus{{
		Path:        p.DocumentPath(),
		State:       doc.State().String(),
		Entries:     len(doc.Entries()),
		Provisioned: true,
	}}

	for _, identity := range doc.Entries() {
		st := DocumentStatus{Identity: identity, State: registry.NonExistent.String()}
		ip, err := p.IdentityPaths(identity)
		if err != nil {
			st.Error = err.Error()
			out = append(out, st)
			continue
		}
		st.Path = ip.Metadata
		st.Provisioned = p.prov.Provisioned(ip)
		if !st.Provisioned {
			out = append(out, st)
			continue
		}

		meta, err := openDocument(ip.Metadata, registry.Annotations)
		if err != nil {
			st.Error = err.Error()
			out = append(out, st)
			continue
		}
		st.State = meta.State().String()
		st.Entries = len(meta.Entries())
		out = append(out, st)
	}
	return out, nil
}
