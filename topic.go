package topic2html

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Topic is a deserialized topic JSON export: the topic metadata plus every
// post's pre-rendered ("cooked") HTML body.
type Topic struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	PostStream PostStream `json:"post_stream"`
}

// PostStream wraps the ordered post list.
type PostStream struct {
	Posts []Post `json:"posts"`
}

// Post is one post in the stream. Only PostNumber is required; a post with
// no cooked HTML is skipped during rendering.
type Post struct {
	PostNumber      int64  `json:"post_number"`
	Username        string `json:"username"`
	DisplayUsername string `json:"display_username"`
	AvatarTemplate  string `json:"avatar_template"`
	CreatedAt       string `json:"created_at"`
	Cooked          string `json:"cooked"`
}

// ParseTopic deserializes and validates a topic JSON document.
func ParseTopic(data []byte) (*Topic, error) {
	var t Topic
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse topic JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the fields the renderer depends on. Schema violations are
// fatal before any network activity starts.
func (t *Topic) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: id", ErrTopicSchema)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title", ErrTopicSchema)
	}
	if len(t.PostStream.Posts) == 0 {
		return fmt.Errorf("%w: post_stream.posts", ErrTopicSchema)
	}
	for i, p := range t.PostStream.Posts {
		if p.PostNumber <= 0 {
			return fmt.Errorf("%w: posts[%d].post_number", ErrTopicSchema, i)
		}
	}
	return nil
}

// RenderablePostCount returns how many posts carry non-empty cooked HTML.
func (t *Topic) RenderablePostCount() int {
	n := 0
	for _, p := range t.PostStream.Posts {
		if strings.TrimSpace(p.Cooked) != "" {
			n++
		}
	}
	return n
}
