package topic2html

import (
	"errors"
	"testing"
)

func TestParseTopic(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"id": 123,
		"title": "Release notes",
		"post_stream": {
			"posts": [
				{
					"post_number": 1,
					"username": "alice",
					"display_username": "Alice",
					"avatar_template": "/user_avatar/a/{size}.png",
					"created_at": "2026-01-02T03:04:05Z",
					"cooked": "<p>hello</p>"
				},
				{"post_number": 2, "username": "bob", "cooked": ""}
			]
		},
		"views": 42,
		"unknown_field": true
	}`)

	topic, err := ParseTopic(data)
	if err != nil {
		t.Fatalf("ParseTopic() error = %v", err)
	}
	if topic.ID != 123 || topic.Title != "Release notes" {
		t.Errorf("topic = %+v, want id 123 title Release notes", topic)
	}
	if len(topic.PostStream.Posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(topic.PostStream.Posts))
	}
	if got := topic.PostStream.Posts[0].AvatarTemplate; got != "/user_avatar/a/{size}.png" {
		t.Errorf("avatar_template = %q", got)
	}
	if got := topic.RenderablePostCount(); got != 1 {
		t.Errorf("RenderablePostCount() = %d, want 1", got)
	}
}

func TestParseTopicRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := ParseTopic([]byte(`{"id": `)); err == nil {
		t.Fatal("ParseTopic() succeeded on truncated JSON")
	}
}

func TestTopicValidate(t *testing.T) {
	t.Parallel()

	valid := func() Topic {
		return Topic{
			ID:    1,
			Title: "t",
			PostStream: PostStream{Posts: []Post{
				{PostNumber: 1, Cooked: "<p>x</p>"},
			}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Topic)
	}{
		{name: "zero id", mutate: func(tp *Topic) { tp.ID = 0 }},
		{name: "negative id", mutate: func(tp *Topic) { tp.ID = -3 }},
		{name: "blank title", mutate: func(tp *Topic) { tp.Title = "  " }},
		{name: "no posts", mutate: func(tp *Topic) { tp.PostStream.Posts = nil }},
		{name: "zero post number", mutate: func(tp *Topic) { tp.PostStream.Posts[0].PostNumber = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			topic := valid()
			tt.mutate(&topic)
			err := topic.Validate()
			if !errors.Is(err, ErrTopicSchema) {
				t.Errorf("Validate() error = %v, want ErrTopicSchema", err)
			}
		})
	}

	topic := valid()
	if err := topic.Validate(); err != nil {
		t.Errorf("Validate() on valid topic = %v", err)
	}
}
