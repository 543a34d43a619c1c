package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-VCF/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go VCF"
	AppID             = "com.github.tartampluch.go-vcf"
	CommandName       = "go-vcf"
	KeyringService    = "com.github.tartampluch.go-vcf"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	SettingsFileName  = "settings.yaml"
	DatabaseFileName  = "contacts.db"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and the contact index.
	FilePermUserRW fs.FileMode = 0600

	// FilePermCard represents -rw-r--r--, the mode of written card files.
	FilePermCard fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig   = "config"
	FlagDebug    = "debug"
	FlagLang     = "lang"
	FlagDB       = "db"
	FlagOutput   = "output"
	FlagMonth    = "month"
	FlagPort     = "port"
	FlagURL      = "url"
	FlagUser     = "user"
	FlagSize     = "size"
	FlagFold     = "fold"
	FlagStrict   = "strict"
	FlagReminder = "reminder"
	FlagDate     = "date"
	FlagInterval = "interval"

	FlagDescConfig   = "Path to the YAML settings file"
	FlagDescDebug    = "Enable debug logging to stderr"
	FlagDescLang     = "Language used for error messages (en, fr)"
	FlagDescDB       = "Path to the SQLite contact index"
	FlagDescOutput   = "Output file (defaults to stdout)"
	FlagDescMonth    = "Birth month to search for (1-12)"
	FlagDescPort     = "Port the HTTP feed listens on"
	FlagDescURL      = "URL of a remote vCard file"
	FlagDescUser     = "HTTP Basic Auth username (password is read from the keyring)"
	FlagDescSize     = "QR code size in pixels"
	FlagDescFold     = "Fold emitted lines longer than this many octets (0 disables folding)"
	FlagDescStrict   = "Reject content before BEGIN:VCARD"
	FlagDescReminder = "ISO8601 reminder trigger for calendar events (e.g. -P1D)"
	FlagDescDate     = "Pretend today is this date (YYYY-MM-DD)"
	FlagDescInterval = "How often the feed is regenerated (0 disables refreshing)"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// CLI Commands
// -----------------------------------------------------------------------------

const (
	AppUsage = "Parse, validate and rewrite vCard 4.0 files"

	CmdShow      = "show"
	CmdList      = "list"
	CmdValidate  = "validate"
	CmdRename    = "rename"
	CmdNew       = "new"
	CmdCopy      = "copy"
	CmdFormat    = "format"
	CmdIndex     = "index"
	CmdContacts  = "contacts"
	CmdBirthdays = "birthdays"
	CmdCalendar  = "calendar"
	CmdServe     = "serve"
	CmdFetch     = "fetch"
	CmdPassword  = "password"
	CmdQR        = "qr"
	CmdScan      = "scan"
	CmdUpcoming  = "upcoming"

	UsageShow      = "Print the content of a card file"
	UsageList      = "Summarize every card file of a directory"
	UsageValidate  = "Check card files against the vCard 4.0 rules"
	UsageRename    = "Change the display name (FN) of a card"
	UsageNew       = "Create a card file holding only a display name"
	UsageCopy      = "Validate a card and write it to a new file"
	UsageFormat    = "Re-serialize a card in canonical form"
	UsageIndex     = "Add card files or directories to the contact index"
	UsageContacts  = "List the indexed contacts"
	UsageBirthdays = "List indexed contacts born in a given month"
	UsageCalendar  = "Export birthdays and anniversaries as iCalendar"
	UsageServe     = "Serve the calendar and the cards over HTTP"
	UsageFetch     = "Download a remote vCard file"
	UsagePassword  = "Store the HTTP password of a user in the OS keyring (read from stdin)"
	UsageQR        = "Render a card as a PNG QR code"
	UsageScan      = "Read a card back from a PNG QR code"
	UsageUpcoming  = "List birthdays and anniversaries by next occurrence"

	ArgsFile     = "<file>"
	ArgsFiles    = "<file>..."
	ArgsDir      = "<dir>"
	ArgsPaths    = "<file|dir>..."
	ArgsSource   = "<file|dir>"
	ArgsRename   = "<file> <name>"
	ArgsCopy     = "<src> <dst>"
	ArgsUser     = "<user>"
	ArgsPNG      = "<png>"
	FormatStatus = "%s: %s\n"
	FormatRow    = "%-24s | %-16s | %-16s | %s\n"
	FormatEntry  = "%s  %s\n"

	DefaultSyncInterval = 1 * time.Hour
)

// -----------------------------------------------------------------------------
// vCard Grammar
// -----------------------------------------------------------------------------

const (
	// LineTerminator is the mandatory physical line ending.
	LineTerminator = "\r\n"

	KeywordBegin   = "BEGIN"
	KeywordEnd     = "END"
	KeywordVCard   = "VCARD"
	KeywordVersion = "VERSION"

	// SupportedVersion is the only VERSION value accepted and the one emitted.
	SupportedVersion = "4.0"

	VCardFN          = "FN"
	VCardN           = "N"
	VCardBDAY        = "BDAY"
	VCardAnniversary = "ANNIVERSARY"

	// StructuredNameFields is the positional cardinality of N.
	StructuredNameFields = 5

	DelimColon     = ':'
	DelimSemicolon = ';'
	DelimGroup     = '.'
	DelimParam     = '='

	// DateTimeSeparator splits a date-and-time value into its two parts.
	DateTimeSeparator = "T"
	// PartialDatePrefix marks a truncated date such as --0615.
	PartialDatePrefix = "--"

	DateLength = 8
	TimeLength = 6
)

// AllowedProperties is the closed set of property names a record may carry:
// every property defined in RFC 6350 section 6, including the general
// (SOURCE, KIND, XML) and identification (NICKNAME, PHOTO) ones.
// Extension (X-) properties are not accepted.
var AllowedProperties = []string{
	"SOURCE", "KIND", "XML",
	"FN", "N", "NICKNAME", "PHOTO", "BDAY", "ANNIVERSARY", "GENDER",
	"ADR",
	"TEL", "EMAIL", "IMPP", "LANG",
	"TZ", "GEO",
	"TITLE", "ROLE", "LOGO", "ORG", "MEMBER", "RELATED",
	"CATEGORIES", "NOTE", "PRODID", "REV", "SOUND", "UID", "CLIENTPIDMAP", "URL",
	"KEY",
	"FBURL", "CALADRURI", "CALURI",
}

// ValueRequiredProperties must carry a non-empty value list.
var ValueRequiredProperties = []string{
	"FN", "N", "TEL", "EMAIL", "IMPP", "LANG", "TZ", "GEO",
	"TITLE", "ROLE", "ORG", "MEMBER", "RELATED", "URL",
}

// -----------------------------------------------------------------------------
// Defaults & Limits
// -----------------------------------------------------------------------------

const (
	// DefaultMaxLineLength bounds one unfolded logical line, in bytes.
	DefaultMaxLineLength = 8192
	// MaxLineLengthCeiling is the largest limit a settings file may request.
	MaxLineLengthCeiling = 1 << 20

	DefaultFoldWidth = 0
	MinFoldWidth     = 8

	DefaultPort     = "18080"
	DefaultLanguage = "en"
	DefaultLeapYear = 2000 // Leap year fallback for dates like --0229
	UIDSalt         = "go-vcf-v1-"
	DefaultQRSize   = 256
	MaxQRSize       = 4096

	DisplayNamePolicyLast   = "last"
	DisplayNamePolicyFirst  = "first"
	DisplayNamePolicyReject = "reject"
)

// SupportedLanguages defines the list of available message languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// CardExtensions are the accepted card file extensions (compared case-insensitively).
var CardExtensions = []string{".vcf", ".vcard"}

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go VCF//Engine//EN"
	ICalCalName   = "Contacts"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "govcf"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"
	PropCategories  = "CATEGORIES"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// Occasions are the kinds of yearly events derived from a record.
const (
	OccasionBirthday    = "birthday"
	OccasionAnniversary = "anniversary"
)

// -----------------------------------------------------------------------------
// Data Formats
// -----------------------------------------------------------------------------

const (
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s|%s"
	FormatUID       = "%s-%d@%s"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	RouteCalendar       = "/calendar.ics"
	RouteCard           = "/cards/{uid}"
	PathValueUID        = "uid"
	AddrSeparator       = ":"
	MinPort             = 1
	MaxPort             = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAccept          = "Accept"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextVCard       = "text/vcard; charset=utf-8"
	MimeNoSniff         = "nosniff"
	AcceptVCard         = "text/vcard, text/x-vcard;q=0.9, */*;q=0.1"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	// Core parser and validator.
	ErrLineTerminator   = "physical line is not terminated by CRLF"
	ErrLineTooLong      = "logical line exceeds the maximum length"
	ErrReadLine         = "failed to read physical line"
	ErrBadBegin         = "BEGIN must be followed by VCARD"
	ErrBadEnd           = "END must be followed by VCARD"
	ErrEndBeforeBegin   = "END:VCARD found before BEGIN:VCARD"
	ErrContentBeforeBeg = "content found before BEGIN:VCARD"
	ErrMissingColon     = "property line has no colon"
	ErrEmptyName        = "property name is empty"
	ErrBadName          = "property name or group contains a delimiter"
	ErrBadParameter     = "parameter must be a single name=value pair"
	ErrVersionMismatch  = "unsupported VERSION"
	ErrDuplicateFN      = "more than one FN property"
	ErrIncomplete       = "record is missing BEGIN, END, VERSION or FN"
	ErrNilRecord        = "record is nil"
	ErrMissingFN        = "FN property is missing or has no value"
	ErrVersionProperty  = "VERSION must not be stored as a property"
	ErrUnknownProperty  = "property name is not allowed"
	ErrNilLists         = "property parameter or value list is nil"
	ErrNCardinality     = "N must have exactly five values"
	ErrDuplicateN       = "more than one N property"
	ErrValueRequired    = "property requires a value"
	ErrDateTimeShape    = "date-time field has an invalid shape"
	ErrDateAsProperty   = "BDAY and ANNIVERSARY must not be stored as properties"
	ErrWriteRecord      = "failed to write record"
	ErrEmptyDisplayName = "display name is empty"

	// Collaborators.
	ErrFileExtension    = "file extension must be .vcf or .vcard"
	ErrFileOpen         = "failed to open card file"
	ErrFileExists       = "card file already exists"
	ErrFileWrite        = "failed to write card file"
	ErrLocalPathEmpty   = "configuration error: local path is empty"
	ErrWebURLEmpty      = "configuration error: web URL is empty"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrModeUnsupport    = "configuration error: unsupported source mode"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrPortNumber       = "server port must be a number"
	ErrPortRange        = "server port must be between 1 and 65535"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrFetchRequest     = "failed to create request"
	ErrFetchNetwork     = "network error during fetch"
	ErrFetchStatus      = "server returned unexpected status"
	ErrFetchTooLarge    = "remote vCard file exceeds size limit"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrDateParse        = "unable to parse date"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrSettingsRead     = "failed to read settings file"
	ErrSettingsParse    = "failed to parse settings file"
	ErrSettingsPolicy   = "display_name_policy must be last, first or reject"
	ErrSettingsLineLen  = "max_line_length is out of range"
	ErrSettingsFold     = "fold_width is out of range"
	ErrSettingsLanguage = "language is not supported"
	ErrDBOpen           = "failed to open contact index"
	ErrDBMigrate        = "failed to migrate contact index"
	ErrDBQuery          = "contact index query failed"
	ErrMonthRange       = "month must be between 1 and 12"
	ErrQREmpty          = "QR payload is empty"
	ErrQRSize           = "invalid QR code size"
	ErrQREncode         = "failed to encode QR code"
	ErrQRDecode         = "failed to decode QR code"
	ErrArgsMissing      = "missing required arguments"
	ErrNoRecords        = "no valid card found"
	ErrOutputWrite      = "failed to write output"
	ErrPasswordEmpty    = "password is empty"
	ErrKeyring          = "password lookup failed"
)

// -----------------------------------------------------------------------------
// Translation Keys (i18n)
// -----------------------------------------------------------------------------

const (
	// Error kinds
	TKeyErrOther    = "error_other"
	TKeyErrInvFile  = "error_invalid_file"
	TKeyErrInvCard  = "error_invalid_card"
	TKeyErrInvProp  = "error_invalid_property"
	TKeyErrInvDT    = "error_invalid_datetime"
	TKeyErrWrite    = "error_write"
	TKeyErrAtLine   = "error_at_line"
	TKeyStatusValid = "status_valid"

	// Calendar events
	TKeyEvtBirthday       = "event_birthday"
	TKeyEvtBirthdayAge    = "event_birthday_age"
	TKeyEvtBirth          = "event_birth"
	TKeyEvtAnniversary    = "event_anniversary"
	TKeyEvtAnniversaryAge = "event_anniversary_age"

	// Contact listings
	TKeyColName        = "column_name"
	TKeyColBirthday    = "column_birthday"
	TKeyColAnniversary = "column_anniversary"
	TKeyColFile        = "column_file"
	TKeyNotAvailable   = "not_available"
	TKeyIndexed        = "contacts_indexed"
	TKeyFeedReady      = "feed_ready"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Feed initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "Not Found"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummaryBirthday    = "Birthday: %s"
	FallbackSummaryAnniversary = "Anniversary: %s"
	FallbackSummaryAge         = "%s (%d)"
	FallbackName               = "Unknown"
	SummaryErrorPrefix         = "Error: "

	MsgSyncStarted    = "Synchronization started"
	MsgAppStop        = "Application stopped gracefully"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgGenSuccess     = "Calendar generation successful"
	MsgAppStarting    = "Starting application"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Feed cache updated"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgPassFail       = "Password retrieval failed (might be empty)"
	MsgFetchStart     = "Initiating vCard download"
	MsgFetchStatus    = "Server returned error status"
	MsgFetchBody      = "vCards downloading"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgDateToday      = "Occasion found today"
	MsgPreBeginLine   = "Ignoring line before BEGIN:VCARD"
	MsgResync         = "Discarding remainder of malformed vCard"
	MsgRecordDecoded  = "vCard decoded"
	MsgCardWritten    = "Card written"
	MsgFileIndexed    = "Card file indexed"
	MsgDBMigrated     = "Contact index migrated"
	MsgSettingsLoaded = "Settings loaded"
	MsgSettingsAbsent = "Settings file not found, using defaults"
	MsgFeedRefreshed  = "Feed regenerated"
	MsgCommand        = "Running command"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyMode      = "mode"
	LogKeyLine      = "line"
	LogKeyKind      = "kind"
	LogKeyUser      = "user"
	LogKeyTotal     = "total_cards"
	LogKeyFound     = "occasions_found"
	LogKeyToday     = "occasions_today"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyCount     = "count"
	LogKeyName      = "name"
	LogKeyDate      = "date"
	LogKeyOccasion  = "occasion"
	LogKeyDuration  = "duration_ms"
	LogKeyProps     = "properties"
	LogKeyVersion   = "version"
	LogKeyCommand   = "command"

	// Startup Info Keys
	LogKeyBuild  = "build"
	LogKeyApp    = "app"
	LogKeyGoVer  = "go_version"
	LogKeyCommit = "commit"
	LogKeyBuilt  = "built"
	LogKeyEnv    = "env"
	LogKeyOS     = "os"
	LogKeyArch   = "arch"
	LogKeyPID    = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompCard    = "card"
	CompFile    = "cardfile"
	CompEngine  = "engine"
	CompServer  = "server"
	CompFetcher = "fetcher"
	CompStore   = "store"
	CompCLI     = "cli"
	CompMain    = "main"
	CompI18n    = "i18n"
	CompConfig  = "config"
)

// -----------------------------------------------------------------------------
// Source Modes
// -----------------------------------------------------------------------------

const (
	SourceModeWeb   = "web"
	SourceModeLocal = "local"
	SourceModeDir   = "dir"
)
