package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/vm"
)

// ProofData is the transcript of one call, as handed to an external prover.
type ProofData struct {
	Input                    ir.AlignedValue   `json:"input"`
	Output                   *ir.AlignedValue  `json:"output,omitempty"`
	PublicTranscript         vm.Program        `json:"publicTranscript"`
	PrivateTranscriptOutputs []ir.AlignedValue `json:"privateTranscriptOutputs"`
}

// ReadCount returns the number of popeq operations in the public transcript.
func (p ProofData) ReadCount() int {
	n := 0
	for _, op := range p.PublicTranscript {
		if _, ok := op.(vm.Popeq); ok {
			n++
		}
	}
	return n
}

// Canonical returns the RFC 8785 form of the transcript. It is the form
// stored in the call log and compared by golden tests.
func (p ProofData) Canonical() ([]byte, error) {
	private := make([]any, len(p.PrivateTranscriptOutputs))
	for i, v := range p.PrivateTranscriptOutputs {
		private[i] = v
	}
	doc := map[string]any{
		"schemaVersion":            ir.SchemaVersion,
		"input":                    p.Input,
		"publicTranscript":         p.PublicTranscript,
		"privateTranscriptOutputs": private,
	}
	if p.Output != nil {
		doc["output"] = *p.Output
	}
	return ir.MarshalCanonical(doc)
}

// Parse decodes a transcript from its JSON or canonical form.
func Parse(data []byte) (ProofData, error) {
	var p ProofData
	if err := json.Unmarshal(data, &p); err != nil {
		return ProofData{}, fmt.Errorf("parse transcript: %w", err)
	}
	if p.PrivateTranscriptOutputs == nil {
		p.PrivateTranscriptOutputs = []ir.AlignedValue{}
	}
	return p, nil
}

// Public returns the transcript without its private outputs: the part a
// verifier may see.
func (p ProofData) Public() ProofData {
	out := p
	out.PublicTranscript = p.PublicTranscript.Clone()
	out.PrivateTranscriptOutputs = []ir.AlignedValue{}
	return out
}

// Commitment returns a MiMC digest over the BLS12-381 scalar field of the
// canonical public transcript. A prover binds its proof to this value.
func (p ProofData) Commitment() ([]byte, error) {
	data, err := p.Public().Canonical()
	if err != nil {
		return nil, err
	}
	return mimcHash(data)
}

// mimcHash feeds data in field-sized blocks, reducing full blocks into the
// field first since raw bytes may exceed the modulus.
func mimcHash(data []byte) ([]byte, error) {
	h := mimc.NewMiMC()
	for i := 0; i < len(data); i += fr.Bytes {
		end := min(i+fr.Bytes, len(data))
		chunk := data[i:end]
		if len(chunk) == fr.Bytes {
			var elem fr.Element
			elem.SetBytes(chunk)
			chunk = elem.Marshal()
		}
		if _, err := h.Write(chunk); err != nil {
			return nil, fmt.Errorf("commitment: %w", err)
		}
	}
	return h.Sum(nil), nil
}
