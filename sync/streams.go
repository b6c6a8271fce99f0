package sync

// StreamID identifies one output stream.
type StreamID string

const (
	Lists              StreamID = "lists"
	Messages           StreamID = "messages"
	MessageClicks      StreamID = "message_clicks"
	MessageOpens       StreamID = "message_opens"
	MessageReads       StreamID = "message_reads"
	MessageSends       StreamID = "message_sends"
	MessageUnsubs      StreamID = "message_unsubs"
	MessageBounces     StreamID = "message_bounces"
	SubscribedContacts StreamID = "subscribed_contacts"
)

// AllStreams lists every stream in catalog order.
var AllStreams = []StreamID{
	Lists,
	Messages,
	MessageClicks,
	MessageOpens,
	MessageReads,
	MessageSends,
	MessageUnsubs,
	MessageBounces,
	SubscribedContacts,
}

// KeyProperties holds the primary key fields for each stream. Downstream
// deduplication relies on these, so they must match the emitted schemas.
var KeyProperties = map[StreamID][]string{
	Lists:              {"ListID"},
	Messages:           {"MsgID"},
	MessageClicks:      {"MsgID", "EmailAddress"},
	MessageOpens:       {"MsgID", "EmailAddress"},
	MessageReads:       {"MsgID", "EmailAddress"},
	MessageSends:       {"MsgID", "EmailAddress"},
	MessageUnsubs:      {"MsgID", "EmailAddress"},
	MessageBounces:     {"MsgID", "EmailAddress"},
	SubscribedContacts: {"ListID", "ContactID"},
}

// Remote operations consumed from the Listrak IntegrationService.
const (
	OpGetContactListCollection         = "GetContactListCollection"
	OpReportListMessageActivity        = "ReportListMessageActivity"
	OpReportRangeSubscribedContacts    = "ReportRangeSubscribedContacts"
	OpReportRangeMessageContactClick   = "ReportRangeMessageContactClick"
	OpReportRangeMessageContactOpen    = "ReportRangeMessageContactOpen"
	OpReportRangeMessageContactRead    = "ReportRangeMessageContactRead"
	OpReportRangeMessageContactRemoval = "ReportRangeMessageContactRemoval"
	OpReportRangeMessageContactBounces = "ReportRangeMessageContactBounces"
	OpReportMessageContactSent         = "ReportMessageContactSent"
)

// Bookmark keys a watermark in the state by stream and field.
type Bookmark struct {
	Stream StreamID
	Field  string
}

var (
	BookMessages           = Bookmark{Messages, "SendDate"}
	BookMessageClicks      = Bookmark{MessageClicks, "ClickDate"}
	BookMessageOpens       = Bookmark{MessageOpens, "OpenDate"}
	BookMessageReads       = Bookmark{MessageReads, "ReadDate"}
	BookMessageSends       = Bookmark{MessageSends, "SendDate"}
	BookMessageUnsubs      = Bookmark{MessageUnsubs, "RemovalDate"}
	BookMessageBounces     = Bookmark{MessageBounces, "BounceDate"}
	BookSubscribedContacts = Bookmark{SubscribedContacts, "AdditionDate"}
)

// subStream is the capability record for one per-message activity stream:
// which remote operation serves it, which element wraps its rows in the
// response, and which bookmark it advances.
type subStream struct {
	ID         StreamID
	Book       Bookmark
	Endpoint   string
	RowElement string
}

var messageSubStreams = []subStream{
	{MessageClicks, BookMessageClicks, OpReportRangeMessageContactClick, "WSMessageClick"},
	{MessageOpens, BookMessageOpens, OpReportRangeMessageContactOpen, "WSMessageOpen"},
	{MessageReads, BookMessageReads, OpReportRangeMessageContactRead, "WSMessageRead"},
	{MessageUnsubs, BookMessageUnsubs, OpReportRangeMessageContactRemoval, "WSMessageRemoval"},
	{MessageBounces, BookMessageBounces, OpReportRangeMessageContactBounces, "WSMessageBounce"},
}
