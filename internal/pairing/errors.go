package pairing

import "errors"

// Sentinel errors returned by the pairing service. Callers map these to
// short retry-guidance replies; none of them is fatal to the process.
var (
	// ErrAlreadyChatting is returned by RequestSearch while the user has a
	// live partner.
	ErrAlreadyChatting = errors.New("pairing: user already in a chat")

	// ErrAlreadySearching is returned by RequestSearch while the user is
	// already in the waiting pool.
	ErrAlreadySearching = errors.New("pairing: user already searching")

	// ErrNotConnected is returned by RelayMessage when the sender has no
	// partner, in memory or in the durable record.
	ErrNotConnected = errors.New("pairing: user has no partner")

	// ErrPartnerUnreachable is returned by RelayMessage when delivery fails
	// because the partner blocked the bot or deactivated their account.
	// Messenger implementations wrap this sentinel so the relay can
	// classify delivery failures without knowing the platform.
	ErrPartnerUnreachable = errors.New("pairing: partner unreachable")

	// ErrPersistFailed is returned when the durable partner record could not
	// be written within the retry budget. The in-memory pairing has already
	// been rolled back when this error surfaces.
	ErrPersistFailed = errors.New("pairing: partner record persist failed")
)

// Notice identifies a user-facing service notification. The core decides
// WHEN to notify; the messaging collaborator decides the wording.
type Notice string

const (
	NoticePaired         Notice = "paired"
	NoticePairingFailed  Notice = "pairing_failed"
	NoticeSearchTimeout  Notice = "search_timeout"
	NoticeIdleDisconnect Notice = "idle_disconnect"
	NoticePartnerLeft    Notice = "partner_left"
)
