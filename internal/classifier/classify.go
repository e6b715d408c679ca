package classifier

// Well-known compliance regime identifiers. Matching is case-sensitive
// exact match — "gdpr" is not GDPR, it lands in Additional.
const (
	RegimeGDPR   = "GDPR"
	RegimeHIPAA  = "HIPAA"
	RegimeSOX    = "SOX"
	RegimePCIDSS = "PCI-DSS"
)

// ComplianceStatus holds one boolean flag per recognized regime plus an
// open extension map preserving unrecognized identifiers verbatim. Derived
// deterministically from ToolActionDescriptor.ComplianceRequirements.
type ComplianceStatus struct {
	GDPRCompliant   bool            `json:"gdpr_compliant"`
	HIPAACompliant  bool            `json:"hipaa_compliant"`
	SOX404Compliant bool            `json:"sox404_compliant"`
	PCIDSSCompliant bool            `json:"pci_dss_compliant"`
	Additional      map[string]bool `json:"additional,omitempty"`
}

// Classify derives the compliance status for a descriptor. Pure function:
// no I/O, no mutation of the input, identical output for identical input.
func Classify(d ToolActionDescriptor) ComplianceStatus {
	var status ComplianceStatus
	for _, regime := range d.ComplianceRequirements {
		switch regime {
		case RegimeGDPR:
			status.GDPRCompliant = true
		case RegimeHIPAA:
			status.HIPAACompliant = true
		case RegimeSOX:
			status.SOX404Compliant = true
		case RegimePCIDSS:
			status.PCIDSSCompliant = true
		default:
			if status.Additional == nil {
				status.Additional = make(map[string]bool)
			}
			status.Additional[regime] = true
		}
	}
	return status
}
