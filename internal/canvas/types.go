package canvas

import "encoding/json"

// Course is one entry of the favorite-courses listing.
type Course struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	CourseCode       string `json:"course_code"`
	EnrollmentTermID int64  `json:"enrollment_term_id"`

	// Enrollments is kept raw; only its presence matters. Favorites the
	// user is not enrolled in lack the key entirely and are skipped.
	Enrollments json.RawMessage `json:"enrollments"`
}

// Enrolled reports whether the course listing carried an enrollments key.
func (c Course) Enrolled() bool {
	return len(c.Enrollments) > 0 && string(c.Enrollments) != "null"
}

// User identifies the token owner, needed for per-user submission lookups.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Folder is a node of a course file tree.
type Folder struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FoldersURL     string `json:"folders_url"`
	FilesURL       string `json:"files_url"`
	ForSubmissions bool   `json:"for_submissions"`
	CanUpload      bool   `json:"can_upload"`
	ParentFolderID *int64 `json:"parent_folder_id"`
}

// File is a downloadable Canvas file. Path is the local target, assigned by
// the change filter; it never round-trips through JSON.
type File struct {
	ID            int64  `json:"id"`
	FolderID      int64  `json:"folder_id"`
	DisplayName   string `json:"display_name"`
	Size          int64  `json:"size"`
	URL           string `json:"url"`
	UpdatedAt     string `json:"updated_at"`
	LockedForUser bool   `json:"locked_for_user"`

	Path string `json:"-"`
}

// Page is one entry of a course wiki page listing. URL is the page slug.
type Page struct {
	PageID        int64  `json:"page_id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	UpdatedAt     string `json:"updated_at"`
	LockedForUser bool   `json:"locked_for_user"`
}

// PageBody is a single wiki page with its rendered HTML body.
type PageBody struct {
	PageID        int64  `json:"page_id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	UpdatedAt     string `json:"updated_at"`
	LockedForUser bool   `json:"locked_for_user"`
}

// ModuleSection is a course module; its items live behind ItemsURL.
type ModuleSection struct {
	ID       int64  `json:"id"`
	ItemsURL string `json:"items_url"`
	Name     string `json:"name"`
}

// ModuleItem is one entry of a module. Type decides how it is mirrored:
// "Page" items resolve to a wiki page body, "File" items to a file record.
// URL is the API URL of the underlying object and is absent for headers and
// external links.
type ModuleItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Assignment carries the fields the mirror uses; the raw listing is dumped
// separately with everything Canvas returns.
type Assignment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Submission is the token owner's submission for one assignment.
type Submission struct {
	ID          int64  `json:"id"`
	Body        string `json:"body"`
	Attachments []File `json:"attachments"`
}

// Discussion is a discussion topic or announcement.
type Discussion struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Attachments []File `json:"attachments"`
}

// DiscussionView is the full entry tree of one discussion.
type DiscussionView struct {
	UnreadEntries []int64   `json:"unread_entries"`
	View          []Comment `json:"view"`
}

// Comment is one discussion entry. Canvas uses both the singular and plural
// attachment keys depending on entry kind, so both are kept.
type Comment struct {
	ID          int64   `json:"id"`
	Message     *string `json:"message"`
	Attachment  *File   `json:"attachment"`
	Attachments []File  `json:"attachments"`
}

// Session is the response of the session-token endpoint used to bootstrap
// browser-style authentication for external tool launches.
type Session struct {
	SessionURL              string `json:"session_url"`
	RequiresTermsAcceptance bool   `json:"requires_terms_acceptance"`
}
