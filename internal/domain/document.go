package domain

// DocumentType classifies a source document by its inferred content.
type DocumentType string

const (
	DocTypeRiskMethodology     DocumentType = "risk_methodology"
	DocTypeSecurityPrinciples  DocumentType = "security_principles"
	DocTypeITRiskManagement    DocumentType = "it_risk_management"
	DocTypeRegulatoryFramework DocumentType = "regulatory_framework"
	DocTypeCompliance          DocumentType = "compliance"
	DocTypeGeneral             DocumentType = "general"
)

// DocumentTypes lists every valid classification, in priority order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocTypeRiskMethodology,
		DocTypeSecurityPrinciples,
		DocTypeITRiskManagement,
		DocTypeRegulatoryFramework,
		DocTypeCompliance,
		DocTypeGeneral,
	}
}

// IsValidDocumentType reports whether t is a known classification.
func IsValidDocumentType(t DocumentType) bool {
	for _, known := range DocumentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Document is a loaded source file. Immutable once loaded.
type Document struct {
	Content       string
	SourcePath    string
	Filename      string
	Type          DocumentType
	ContentLength int
	Language      string
	Domain        string
}
