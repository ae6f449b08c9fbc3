package descriptions

import "sort"

// Tool names
const (
	ToolListDocuments   = "ba_list_documents"
	ToolLookupRole      = "ba_lookup_role"
	ToolOpenDocument    = "ba_open_document"
	ToolDrawSignature   = "ba_draw_signature"
	ToolAdjustPlacement = "ba_adjust_placement"
	ToolCommitSignature = "ba_commit_signature"
	ToolResign          = "ba_resign"
	ToolCloseSession    = "ba_close_session"
	ToolComposeReport   = "ba_compose_report"
	ToolCloseReport     = "ba_close_report"
	ToolShare           = "ba_share"
	ToolServerInfo      = "ba_server_info"
)

// Tool descriptions with practical examples
const (
	ListDocumentsDescription = `Find Berita Acara PDFs in the work directory.

**When to use:** Before ba_open_document, to pick the file to sign. Matches the store code exactly or the words of the file name.

**Examples:**
• query "A12B" → BA_VARIANCE_A12B_251225_TTD_AS.pdf (signed), Berita_Acara_A12B.pdf
• query "toko barat" → "scan/ba toko barat.pdf"

**Best practices:** Files are not opened, so listing is fast; the store code shown comes from the file name. Signed results carry the TTD marker.`

	LookupRoleDescription = `Check who is signing before a signing session starts.

**When to use:** An approver gives their NIK and selected role. Area Supervisor and Area Manager must be on the roster with that role; DBM ADM / BM, EDP Manager and Office Manager sign under their title and need no NIK.

**Examples:**
• "NIK 2010001 as Area Supervisor" → Budi Santoso (Area Supervisor)
• "NIK 2010001 as Area Manager" → rejected, the NIK is registered as Area Supervisor

**Best practices:** Run before ba_open_document so a role mismatch is reported before any document is rendered.`

	OpenDocumentDescription = `Open a printed Berita Acara PDF for signing and start a signing session.

**When to use:** An approver wants to sign a BA. The NIK and role are checked first, then page 1 is rendered at the preview width.

**Returns:** session_id, page size in points, preview scale and canvas size in display pixels, and the store code read from the file name or page text. With include_preview the page bitmap is returned as a PNG.

**Common workflows:**
1. ba_list_documents → ba_open_document → ba_draw_signature → ba_commit_signature → ba_share
2. Wrong position: ba_adjust_placement between draw and commit
3. Another attempt: ba_resign → ba_draw_signature → ba_commit_signature

**Best practices:** Paths are relative to the work directory; files outside it are rejected. A PDF that is not in the work directory can be uploaded as base64 content with its file name.`

	DrawSignatureDescription = `Capture the approver's signature and place it at the role's default box on page 1.

**When to use:** After ba_open_document. Pass pen strokes drawn on a pad (each stroke a list of [x, y] points in pad pixels), or a transparent PNG from the work directory.

**Examples:**
• strokes: [[[10,40],[60,20],[120,45]],[[130,30],[180,30]]] on a 320x200 pad
• image_path: "ttd/budi.png"

**Best practices:** An empty pad is rejected; draw at least one stroke. Drawing again replaces the signature and resets the placement to the default box. Pads are at most 2048x2048 pixels and images at most 4096 pixels a side. Set cancel to true to close the capture without saving; a signature already placed or committed is kept.`

	AdjustPlacementDescription = `Move or resize the placed signature by replaying a pointer gesture on the preview canvas.

**When to use:** The default box does not line up with the signature line. Press at from_x/from_y and release at to_x/to_y, in display pixels. Pressing inside the box drags it; pressing on its bottom-right 16px handle resizes it.

**Constraints:** width stays between 50 and 200 px, height is always 0.45 x width, and the box never leaves the page.

**Best practices:** Pass width to lay the preview out at a new container width first; the box keeps its position on the page.`

	CommitSignatureDescription = `Embed the signature into a fresh copy of the source document and save it.

**When to use:** The placement is right. The signature is stamped on page 1; Area Supervisor and Area Manager also get their name printed under it.

**Returns:** the output path and file name, e.g. BA_VARIANCE_A12B_251225_TTD_AS.pdf.

**Best practices:** A failed commit keeps the previous signed result and leaves the placement adjustable.`

	ResignDescription = `Discard the signature and signed result so the same document can be signed again from its original bytes.`

	CloseSessionDescription = `End a signing session and release its document, preview and signature.`

	ComposeReportDescription = `Fill in a new Berita Acara variance report and compose it into an A4 PDF.

**When to use:** A store reports a variance. Provide the form fields, the reporter's signature (strokes or image_path) and up to three photos from the work directory.

**Output:** page 1 is the captured form (continued across pages when taller than A4), followed by one page per photo. Saved as Berita_Acara_<KODE TOKO>.pdf.

**Examples:**
• kodeToko "a12b", nominal "1250000" → A12B, 1.250.000
• attachments ["foto/rak.jpg", "foto/struk.png"]

**Best practices:** Non-image attachments are skipped. Missing fields are listed in the error.`

	CloseReportDescription = `Forget a composed report and release its PDF, previews and photos. The saved file in the output directory is kept. Only the most recent reports are held; older ones are released automatically.`

	ShareDescription = `Share a signed document or composed report.

**When to use:** After ba_commit_signature (session_id) or ba_compose_report (report_id).

**Behavior:** no native share capability is available to the server, so the file is saved to the output directory and a wa.me link with the message text is returned for sending by hand. Set confirm_fallback to false to skip the download.`

	ServerInfoDescription = `Get server information: directories, roster size, roles with their default signature boxes, live sessions and available tools.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolListDocuments:   ListDocumentsDescription,
	ToolLookupRole:      LookupRoleDescription,
	ToolOpenDocument:    OpenDocumentDescription,
	ToolDrawSignature:   DrawSignatureDescription,
	ToolAdjustPlacement: AdjustPlacementDescription,
	ToolCommitSignature: CommitSignatureDescription,
	ToolResign:          ResignDescription,
	ToolCloseSession:    CloseSessionDescription,
	ToolComposeReport:   ComposeReportDescription,
	ToolCloseReport:     CloseReportDescription,
	ToolShare:           ShareDescription,
	ToolServerInfo:      ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
