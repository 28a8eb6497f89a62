package credential

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"unicred/internal/domain"
	dErrors "unicred/pkg/domain-errors"
)

func validFact() domain.CompletionFact {
	return domain.CompletionFact{
		UserID:         "1",
		UserEmail:      "ana@example.com",
		UserName:       "Ana",
		CourseID:       "42",
		CourseName:     "Math 101",
		CompletionDate: "2024-01-01",
	}
}

func TestBuildProducesWellFormedCredential(t *testing.T) {
	builder := NewBuilder("Example University")

	vc, err := builder.Build(validFact(), "did:web:issuer.example", "did:uni:holder:abc")
	require.NoError(t, err)

	require.Equal(t, []string{domain.ContextCredentialsV1, domain.ContextExamplesV1}, vc.Context)
	require.True(t, strings.HasPrefix(vc.ID, "urn:uuid:"), "credential id must be a URN: %s", vc.ID)
	require.Equal(t, []string{domain.TypeVerifiableCredential, domain.TypeUniversityDegree}, vc.Type)
	require.Equal(t, "did:web:issuer.example", vc.Issuer)
	require.Equal(t, "did:uni:holder:abc", vc.CredentialSubject.ID)
	require.Equal(t, "Ana", vc.CredentialSubject.Name)
	require.Equal(t, domain.TypeCourseCompletion, vc.CredentialSubject.Degree.Type)
	require.Equal(t, "Math 101", vc.CredentialSubject.Degree.Name)
	require.Equal(t, "Example University", vc.CredentialSubject.University.Name)
	require.Nil(t, vc.Proof, "builder must never attach a proof")
}

func TestBuildExpirationIs365Days(t *testing.T) {
	builder := NewBuilder("Example University")

	vc, err := builder.Build(validFact(), "did:web:issuer.example", "did:uni:holder:abc")
	require.NoError(t, err)

	issued, err := time.Parse(time.RFC3339, vc.IssuanceDate)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339, vc.ExpirationDate)
	require.NoError(t, err)

	require.Equal(t, 365*24*time.Hour, expires.Sub(issued))
	require.True(t, expires.After(issued))
}

func TestBuildGeneratesUniqueIDs(t *testing.T) {
	builder := NewBuilder("Example University")

	seen := make(map[string]bool)
	for range 50 {
		vc, err := builder.Build(validFact(), "did:web:issuer.example", "did:uni:holder:abc")
		require.NoError(t, err)
		require.False(t, seen[vc.ID], "duplicate credential id %s", vc.ID)
		seen[vc.ID] = true
	}
}

func TestBuildRejectsMalformedFacts(t *testing.T) {
	builder := NewBuilder("Example University")

	tests := []struct {
		name   string
		mutate func(*domain.CompletionFact)
	}{
		{"missing userId", func(f *domain.CompletionFact) { f.UserID = "" }},
		{"missing userName", func(f *domain.CompletionFact) { f.UserName = "" }},
		{"missing courseName", func(f *domain.CompletionFact) { f.CourseName = "" }},
		{"missing completionDate", func(f *domain.CompletionFact) { f.CompletionDate = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := validFact()
			tt.mutate(&fact)

			_, err := builder.Build(fact, "did:web:issuer.example", "did:uni:holder:abc")
			require.Error(t, err)
			var de *dErrors.Error
			require.ErrorAs(t, err, &de)
			require.Equal(t, dErrors.CodeInvalidInput, de.Code)
		})
	}
}

func TestBuildAllowsMissingEmail(t *testing.T) {
	builder := NewBuilder("Example University")

	fact := validFact()
	fact.UserEmail = ""

	vc, err := builder.Build(fact, "did:web:issuer.example", "did:uni:holder:abc")
	require.NoError(t, err)
	require.Empty(t, vc.CredentialSubject.Email)
}
