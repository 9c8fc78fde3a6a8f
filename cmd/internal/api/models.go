package api

import (
	"time"

	"quill/cmd/identity"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/content"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type loginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type profileResponse struct {
	Username string `json:"username"`
	ID       string `json:"id"`
	IssuedAt int64  `json:"iat"`
}

type postRequest struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Cover   string `json:"cover"`
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type postResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	Content   string         `json:"content"`
	Cover     string         `json:"cover"`
	Author    authorResponse `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponse(c session.Claims) profileResponse {
	return profileResponse{
		Username: c.Username,
		ID:       c.UserID.String(),
		IssuedAt: c.IssuedAt.Unix(),
	}
}

func toPostResponse(p content.Post) postResponse {
	return postResponse{
		ID:      p.ID.String(),
		Title:   p.Title,
		Summary: p.Summary,
		Content: p.Content,
		Cover:   p.Cover,
		Author: authorResponse{
			ID:       p.AuthorID.String(),
			Username: p.AuthorName,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r postRequest) draft() content.Draft {
	return content.Draft{
		Title:   r.Title,
		Summary: r.Summary,
		Content: r.Content,
		Cover:   r.Cover,
	}
}
