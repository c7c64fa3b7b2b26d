package enums

type NotificationKind string

const (
	NotificationKindMatched          NotificationKind = "matched"
	NotificationKindPartnerSubmitted NotificationKind = "partnerSubmitted"
	NotificationKindCompleted        NotificationKind = "completed"
	NotificationKindFlaked           NotificationKind = "flaked"
)
