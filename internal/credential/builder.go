// Package credential builds unsigned W3C-style verifiable credential
// documents from course completion facts.
package credential

import (
	"time"

	"github.com/google/uuid"

	"unicred/internal/domain"
)

// validity is the credential lifetime. Expiration is exactly this far past
// issuance.
const validity = 365 * 24 * time.Hour

// Builder constructs credential documents for one issuing institution.
type Builder struct {
	universityName string
}

func NewBuilder(universityName string) *Builder {
	return &Builder{universityName: universityName}
}

// Build produces an unsigned credential. It is pure apart from the fresh URN
// and timestamps, and never sets the proof block; that belongs to the signer.
func (b *Builder) Build(fact domain.CompletionFact, issuerDID, holderDID string) (domain.VerifiableCredential, error) {
	if err := fact.Validate(); err != nil {
		return domain.VerifiableCredential{}, err
	}

	now := time.Now().UTC()
	return domain.VerifiableCredential{
		Context: []string{
			domain.ContextCredentialsV1,
			domain.ContextExamplesV1,
		},
		ID:             "urn:uuid:" + uuid.NewString(),
		Type:           []string{domain.TypeVerifiableCredential, domain.TypeUniversityDegree},
		Issuer:         issuerDID,
		IssuanceDate:   now.Format(time.RFC3339),
		ExpirationDate: now.Add(validity).Format(time.RFC3339),
		CredentialSubject: domain.CredentialSubject{
			ID:    holderDID,
			Name:  fact.UserName,
			Email: fact.UserEmail,
			Degree: domain.Degree{
				Type:           domain.TypeCourseCompletion,
				Name:           fact.CourseName,
				CompletionDate: fact.CompletionDate,
			},
			University: domain.University{
				Name: b.universityName,
				DID:  issuerDID,
			},
		},
	}, nil
}
