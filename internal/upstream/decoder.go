package upstream

import (
	"encoding/json"
	"time"

	"github.com/valstan/setka/internal/core"
)

// JSONDecoder decodes the remote API's JSON envelope into core entities.
// It is the only place that ever looks at raw upstream field names.
type JSONDecoder struct{}

type wireEnvelope struct {
	Response json.RawMessage `json:"response"`
	Error    *wireError      `json:"error"`
}

type wireError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

type wireWallResponse struct {
	Items []wirePost `json:"items"`
}

type wirePost struct {
	ID          int64            `json:"id"`
	OwnerID     int64            `json:"owner_id"`
	FromID      int64            `json:"from_id"`
	Date        int64            `json:"date"`
	Text        string           `json:"text"`
	Views       *wireCounter     `json:"views"`
	Likes       *wireCounter     `json:"likes"`
	Reposts     *wireCounter     `json:"reposts"`
	Comments    *wireCounter     `json:"comments"`
	Attachments []wireAttachment `json:"attachments"`
}

type wireCounter struct {
	Count int64 `json:"count"`
}

type wireAttachment struct {
	Type  string `json:"type"`
	Photo *struct {
		ID int64 `json:"id"`
	} `json:"photo"`
	Video *struct {
		ID int64 `json:"id"`
	} `json:"video"`
}

func (a wireAttachment) mediaID() string {
	switch a.Type {
	case "photo":
		if a.Photo != nil {
			return itoa(a.Photo.ID)
		}
	case "video":
		if a.Video != nil {
			return itoa(a.Video.ID)
		}
	}
	return ""
}

func (p wirePost) toCorePost() core.Post {
	attachments := make([]core.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		id := a.mediaID()
		if id == "" {
			continue
		}
		attachments = append(attachments, core.Attachment{Type: a.Type, ID: id})
	}

	owner := p.OwnerID
	counter := func(c *wireCounter) int64 {
		if c == nil {
			return 0
		}
		return c.Count
	}

	return core.Post{
		ExternalOwnerID:  owner,
		ExternalAuthorID: p.FromID,
		ExternalPostID:   p.ID,
		PublishedAt:      time.Unix(p.Date, 0).UTC(),
		Text:             p.Text,
		Attachments:      attachments,
		Views:            counter(p.Views),
		Likes:            counter(p.Likes),
		Reposts:          counter(p.Reposts),
		Comments:         counter(p.Comments),
		Status:           core.PostStatusNew,
	}
}

// DecodeWallPosts implements Decoder.
func (JSONDecoder) DecodeWallPosts(body []byte) ([]core.Post, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	var wall wireWallResponse
	if err := json.Unmarshal(env.Response, &wall); err != nil {
		return nil, err
	}
	posts := make([]core.Post, 0, len(wall.Items))
	for _, item := range wall.Items {
		posts = append(posts, item.toCorePost())
	}
	return posts, nil
}

// DecodePost implements Decoder.
func (JSONDecoder) DecodePost(body []byte) (core.Post, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return core.Post{}, err
	}
	var items []wirePost
	if err := json.Unmarshal(env.Response, &items); err != nil {
		return core.Post{}, err
	}
	if len(items) == 0 {
		return core.Post{}, nil
	}
	return items[0].toCorePost(), nil
}

// DecodeError implements Decoder: surfaces the upstream error envelope, if
// any, as a classified core error; returns nil for a successful envelope.
func (JSONDecoder) DecodeError(body []byte, statusCode int) error {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Not our JSON envelope shape; let the caller's own decode step
		// surface the problem as a remote/decoding failure.
		return nil
	}
	if env.Error == nil {
		return nil
	}
	return ClassifyDecodedErrorCode(env.Error.ErrorCode, env.Error.ErrorMsg)
}
