package spec

import (
	"errors"
	"fmt"
	"time"
)

/* PREDEFINED VALUES */

const (
	ProtocolVersion uint8         = 1                // Current version of the protocol
	MaxClients      int           = 256              // Default amount of clients the server allows at the same time
	NullOp          Action        = 0                // Invalid operation code
	UsernameSize    int           = 50               // Max size of a username in characters
	HistoryLimit    int           = 100              // Max amount of messages returned by a dialog
	MaxFrameSize    int64         = 1 << 16          // Max size of a single websocket frame in bytes
	MaxUserRequests int           = 5                // Size of the queue of pending requests per connection
	OutboxSize      int           = 256              // Size of the queue of outgoing frames per connection
	WriteWait       time.Duration = 10 * time.Second // Deadline for a single write
	PongWait        time.Duration = 60 * time.Second // Idle timeout refreshed by every pong
	PingPeriod      time.Duration = 54 * time.Second // Must be lower than PongWait
	StampLayout     string        = time.RFC3339     // ISO-8601 with second precision
)

/* ACTION CODES */

// Specifies an event exchanged through the socket.
type Action uint8

const (
	REGISTER Action = iota + 1
	REGISTER_OK
	REGISTER_ERROR
	LOGIN
	LOGIN_OK
	LOGIN_ERROR
	OPEN_DIALOG
	HISTORY
	DIALOG_ERROR
	CHAT_MESSAGE
	SEND_ERROR
	SERVER_EVENT
	SERVER_ERROR
)

// Identifies an event with its wire name and
// the directions it is allowed to travel in.
type lookup struct {
	op     Action // Event code
	str    string // Event name on the wire
	server bool   // Can be sent to the server
	client bool   // Can be sent to the client
}

var (
	registerLookup      = lookup{REGISTER, "register", true, false}
	registerOkLookup    = lookup{REGISTER_OK, "register_ok", false, true}
	registerErrorLookup = lookup{REGISTER_ERROR, "register_error", false, true}
	loginLookup         = lookup{LOGIN, "login", true, false}
	loginOkLookup       = lookup{LOGIN_OK, "login_ok", false, true}
	loginErrorLookup    = lookup{LOGIN_ERROR, "login_error", false, true}
	openDialogLookup    = lookup{OPEN_DIALOG, "open_dialog", true, false}
	historyLookup       = lookup{HISTORY, "history", false, true}
	dialogErrorLookup   = lookup{DIALOG_ERROR, "dialog_error", false, true}
	chatMessageLookup   = lookup{CHAT_MESSAGE, "chat_message", true, true}
	sendErrorLookup     = lookup{SEND_ERROR, "send_error", false, true}
	serverEventLookup   = lookup{SERVER_EVENT, "server_event", false, true}
	serverErrorLookup   = lookup{SERVER_ERROR, "server_error", false, true}
)

var lookupByOperation map[Action]lookup = map[Action]lookup{
	REGISTER:       registerLookup,
	REGISTER_OK:    registerOkLookup,
	REGISTER_ERROR: registerErrorLookup,
	LOGIN:          loginLookup,
	LOGIN_OK:       loginOkLookup,
	LOGIN_ERROR:    loginErrorLookup,
	OPEN_DIALOG:    openDialogLookup,
	HISTORY:        historyLookup,
	DIALOG_ERROR:   dialogErrorLookup,
	CHAT_MESSAGE:   chatMessageLookup,
	SEND_ERROR:     sendErrorLookup,
	SERVER_EVENT:   serverEventLookup,
	SERVER_ERROR:   serverErrorLookup,
}

var lookupByString map[string]lookup = map[string]lookup{
	"register":       registerLookup,
	"register_ok":    registerOkLookup,
	"register_error": registerErrorLookup,
	"login":          loginLookup,
	"login_ok":       loginOkLookup,
	"login_error":    loginErrorLookup,
	"open_dialog":    openDialogLookup,
	"history":        historyLookup,
	"dialog_error":   dialogErrorLookup,
	"chat_message":   chatMessageLookup,
	"send_error":     sendErrorLookup,
	"server_event":   serverEventLookup,
	"server_error":   serverErrorLookup,
}

// Returns the action code associated to an event name.
// Names are case sensitive. Result is NullOp if not found.
func StringToCode(s string) Action {
	v, ok := lookupByString[s]
	if !ok {
		return NullOp
	}
	return v.op
}

// Returns the event name associated to an operation code.
// Result is an empty string if not found.
func CodeToString(a Action) string {
	v, ok := lookupByOperation[a]
	if !ok {
		return ""
	}
	return v.str
}

// Reports whether a client is allowed to send the event.
func ServerBound(a Action) bool {
	v, ok := lookupByOperation[a]
	return ok && v.server
}

// Reports whether the server is allowed to send the event.
func ClientBound(a Action) bool {
	v, ok := lookupByOperation[a]
	return ok && v.client
}

// Returns the event used to report errors of a request.
// Requests without a dedicated error event use SERVER_ERROR.
func ErrorEvent(a Action) Action {
	switch a {
	case REGISTER:
		return REGISTER_ERROR
	case LOGIN:
		return LOGIN_ERROR
	case OPEN_DIALOG:
		return DIALOG_ERROR
	case CHAT_MESSAGE:
		return SEND_ERROR
	default:
		return SERVER_ERROR
	}
}

/* ERROR CODES */

// Error that implements the error interface from
// the [errors] package with specific information
// that follows the protocol.
//
// Two errors with the same code are considered
// equal by [errors.Is], so a variant created with
// [Errorf] still matches its sentinel.
type SpecError struct {
	Code uint8
	Text string
}

// Returns the text asocciated to the error.
func (err SpecError) Error() string {
	return err.Text
}

// Matches any error of the same code.
func (err SpecError) Is(target error) bool {
	t, ok := target.(SpecError)
	return ok && t.Code == err.Code
}

var (
	ErrorUndefined   error = SpecError{0x00, "undefined problem occured"}    // undefined problem occured
	ErrorValidation  error = SpecError{0x01, "invalid arguments given"}      // empty or oversized input
	ErrorDuplicate   error = SpecError{0x02, "username already exists"}      // username already exists
	ErrorNotFound    error = SpecError{0x03, "user not found"}               // unknown username
	ErrorCredentials error = SpecError{0x04, "invalid username or password"} // password does not verify
	ErrorNoSession   error = SpecError{0x05, "not logged in"}                // action requires a session
	ErrorStorage     error = SpecError{0x06, "storage operation failed"}     // durable store failure
	ErrorServer      error = SpecError{0x07, "internal server error"}        // unexpected failure
	ErrorInvalid     error = SpecError{0x08, "invalid operation performed"}  // unknown or misdirected event
	ErrorMalformed   error = SpecError{0x09, "malformed request"}            // undecodable frame
)

var codeToError map[uint8]error = map[uint8]error{
	0x00: ErrorUndefined,
	0x01: ErrorValidation,
	0x02: ErrorDuplicate,
	0x03: ErrorNotFound,
	0x04: ErrorCredentials,
	0x05: ErrorNoSession,
	0x06: ErrorStorage,
	0x07: ErrorServer,
	0x08: ErrorInvalid,
	0x09: ErrorMalformed,
}

// Creates a variant of a protocol error
// with a more specific text. The result still
// matches the sentinel under [errors.Is].
// Other errors are returned unchanged.
func Errorf(kind error, format string, args ...any) error {
	v, ok := kind.(SpecError)
	if !ok {
		return kind
	}
	return SpecError{
		Code: v.Code,
		Text: fmt.Sprintf(format, args...),
	}
}

// Returns the code asocciated to an error.
// Result is the undefined code if it is not
// a protocol error.
func ErrorCode(err error) uint8 {
	var v SpecError
	if errors.As(err, &v) {
		return v.Code
	}
	return 0x00
}

// Returns the error asocciated to a code.
// Result is nil if not found.
func ErrorCodeToError(b uint8) error {
	v, ok := codeToError[b]
	if !ok {
		return nil
	}
	return v
}
