package types

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
)

// DocumentType is the kind of translation service ordered for a document.
type DocumentType string

const (
	DocumentTypeStandard  DocumentType = "standard"
	DocumentTypeCertified DocumentType = "certified"
	DocumentTypeSworn     DocumentType = "sworn"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeStandard, DocumentTypeCertified, DocumentTypeSworn:
		return true
	}
	return false
}

// Actor tags for audit entries written by background components.
const (
	ActorWebhook  = "system:webhook"
	ActorSweeper  = "system:sweeper"
	ActorArrival  = "system:file_arrival"
	ActorNotifier = "system:delivery"
)

// MaxUploadSize caps any submitted or resubmitted document.
const MaxUploadSize = 10 << 20
