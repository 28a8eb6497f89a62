package domain

// W3C credential constants shared by the builder and the signer.
const (
	ContextCredentialsV1 = "https://www.w3.org/2018/credentials/v1"
	ContextExamplesV1    = "https://www.w3.org/2018/credentials/examples/v1"

	TypeVerifiableCredential = "VerifiableCredential"
	TypeUniversityDegree     = "UniversityDegreeCredential"
	TypeCourseCompletion     = "CourseCompletion"

	ProofTypeEd25519 = "Ed25519Signature2018"
)

// VerifiableCredential is a W3C-style credential document. Proof is attached
// by the signer after the document has been serialized without it.
type VerifiableCredential struct {
	Context           []string          `json:"@context"`
	ID                string            `json:"id"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      string            `json:"issuanceDate"`
	ExpirationDate    string            `json:"expirationDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             *Proof            `json:"proof,omitempty"`
}

// CredentialSubject carries the holder DID plus the course completion claims.
type CredentialSubject struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email,omitempty"`
	Degree     Degree     `json:"degree"`
	University University `json:"university"`
}

type Degree struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	CompletionDate string `json:"completionDate"`
}

type University struct {
	Name string `json:"name"`
	DID  string `json:"did"`
}

// Proof is the Linked Data Proof block covering the proof-absent document.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofValue         string `json:"proofValue"`
}

// LedgerAnchorRecord is the write-once commitment submitted to the ledger.
// The hash is one-way; the credential content never leaves the issuer.
type LedgerAnchorRecord struct {
	SubjectID      string `json:"subjectId"`
	CourseName     string `json:"courseName"`
	CredentialHash string `json:"credentialHash"`
	Timestamp      int64  `json:"timestamp"`
}
