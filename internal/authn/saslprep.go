package authn

import "github.com/xdg-go/stringprep"

// SASLPrep applies the RFC 4013 SASLprep profile (stored-string mode) to s:
// the B.1/C.1.2 mappings, NFKC normalisation, the C.1.2/C.2.*/C.3-C.9
// prohibited-output checks, the RFC 3454 §6 bidirectional check, and (in
// stored-string mode) rejection of unassigned code points. Delegated to
// xdg-go/stringprep rather than hand-rolled per the same grounding lib-pq
// uses for its own SCRAM client.
func SASLPrep(s string) (string, error) {
	return stringprep.SASLprep.Prepare(s)
}
