package bluesky

const (
	// CollectionPost is the record collection for posts.
	CollectionPost = "app.bsky.feed.post"
	// CollectionFollow is the record collection for follows.
	CollectionFollow = "app.bsky.graph.follow"
)

// Session is the authenticated identity returned by createSession.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// StrongRef points at one exact version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

// PostRecord is the app.bsky.feed.post record. Notifications for likes or
// follows carry other record types; decoding them here leaves Text empty.
type PostRecord struct {
	Type      string    `json:"$type,omitempty"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt,omitempty"`
	Reply     *ReplyRef `json:"reply,omitempty"`
	Langs     []string  `json:"langs,omitempty"`
}

type ViewerState struct {
	// Following is the URI of our follow record when we follow this actor.
	Following  string `json:"following,omitempty"`
	FollowedBy string `json:"followedBy,omitempty"`
}

type ProfileView struct {
	DID         string       `json:"did"`
	Handle      string       `json:"handle"`
	DisplayName string       `json:"displayName,omitempty"`
	Viewer      *ViewerState `json:"viewer,omitempty"`
}

type Notification struct {
	URI       string      `json:"uri"`
	CID       string      `json:"cid"`
	Author    ProfileView `json:"author"`
	Reason    string      `json:"reason"`
	Record    PostRecord  `json:"record"`
	IsRead    bool        `json:"isRead"`
	IndexedAt string      `json:"indexedAt"`
}

type ImageView struct {
	Thumb    string `json:"thumb"`
	Fullsize string `json:"fullsize"`
	Alt      string `json:"alt"`
}

type ExternalView struct {
	URI         string `json:"uri"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumb       string `json:"thumb,omitempty"`
}

// EmbedView is the hydrated embed of a post view. Only the parts the bot reads
// are decoded: images, external link cards, and the media half of
// record-with-media embeds.
type EmbedView struct {
	Type     string        `json:"$type"`
	Images   []ImageView   `json:"images,omitempty"`
	External *ExternalView `json:"external,omitempty"`
	Media    *EmbedView    `json:"media,omitempty"`
}

// AllImages returns the images of the embed, including nested media.
func (e *EmbedView) AllImages() []ImageView {
	if e == nil {
		return nil
	}
	images := append([]ImageView(nil), e.Images...)
	if e.Media != nil {
		images = append(images, e.Media.AllImages()...)
	}
	return images
}

// Link returns the external link card, including nested media.
func (e *EmbedView) Link() *ExternalView {
	if e == nil {
		return nil
	}
	if e.External != nil {
		return e.External
	}
	return e.Media.Link()
}

type PostView struct {
	URI       string      `json:"uri"`
	CID       string      `json:"cid"`
	Author    ProfileView `json:"author"`
	Record    PostRecord  `json:"record"`
	Embed     *EmbedView  `json:"embed,omitempty"`
	IndexedAt string      `json:"indexedAt,omitempty"`
}

// ThreadView is one node of a getPostThread response. Not-found and blocked
// nodes have no Post.
type ThreadView struct {
	Type     string        `json:"$type"`
	Post     *PostView     `json:"post,omitempty"`
	Parent   *ThreadView   `json:"parent,omitempty"`
	Replies  []*ThreadView `json:"replies,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
	Blocked  bool          `json:"blocked,omitempty"`
}

// ProfilePage is one page of followers or follows.
type ProfilePage struct {
	Profiles []ProfileView
	Cursor   string
}
