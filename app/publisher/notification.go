package publisher

const (
	NotificationKYCVerified            = "kyc_verified"
	NotificationKYCActionRequired      = "kyc_action_required"
	NotificationConnectActivated       = "stripe_connect_activated"
	NotificationRefundProcessed        = "refund_processed"
	NotificationPayoutFailed           = "payout_failed"
	NotificationVerificationReviewDone = "kyc_review_completed"
)

// Notification is the outbound contract consumed by the notification service.
type Notification struct {
	Type         string                 `json:"type"`
	RecipientRef string                 `json:"recipient_ref"`
	TemplateData map[string]interface{} `json:"template_data"`
}
