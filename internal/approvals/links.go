package approvals

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JaimeStill/casse/internal/pending"
)

// Action is a decision an approver can take from an email link.
type Action string

// Link actions.
const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

type linkClaims struct {
	Owner    string `json:"owner"`
	Title    string `json:"title"`
	Decision Action `json:"decision"`
	jwt.RegisteredClaims
}

// Links builds the play and decision URLs embedded in approval emails.
// With a secret the decision links carry a signed token instead of
// plain owner and title parameters.
type Links struct {
	root   string
	secret []byte
	ttl    time.Duration
}

// NewLinks creates a link builder rooted at the API's public URL.
func NewLinks(root string, secret string, ttl time.Duration) *Links {
	l := &Links{root: root, ttl: ttl}
	if secret != "" {
		l.secret = []byte(secret)
	}
	return l
}

// Signed reports whether decision links carry tokens.
func (l *Links) Signed() bool {
	return len(l.secret) > 0
}

// PlayURL streams the submission's primary blob.
func (l *Links) PlayURL(sub pending.Submission) string {
	q := url.Values{
		"email": {sub.Owner},
		"title": {sub.Title},
		"key":   {sub.StorageKey},
	}
	return l.root + "/audio/stream?" + q.Encode()
}

// DecisionURL builds the approve or deny link for (owner, title).
func (l *Links) DecisionURL(action Action, owner, title string, now time.Time) (string, error) {
	q := url.Values{}
	if l.Signed() {
		token, err := l.sign(action, owner, title, now)
		if err != nil {
			return "", err
		}
		q.Set("token", token)
	} else {
		q.Set("email", owner)
		q.Set("title", title)
	}
	return l.root + "/submissions/" + string(action) + "?" + q.Encode(), nil
}

// Verify parses a decision token and returns the owner and title it names.
// The token must have been issued for action.
func (l *Links) Verify(action Action, token string) (owner, title string, err error) {
	if !l.Signed() {
		return "", "", ErrInvalidLink
	}

	claims := &linkClaims{}
	_, err = jwt.ParseWithClaims(
		token,
		claims,
		func(*jwt.Token) (any, error) { return l.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", "", errors.Join(ErrInvalidLink, err)
	}
	if claims.Decision != action {
		return "", "", fmt.Errorf("%w: issued for %s", ErrInvalidLink, claims.Decision)
	}
	return claims.Owner, claims.Title, nil
}

func (l *Links) sign(action Action, owner, title string, now time.Time) (string, error) {
	claims := linkClaims{
		Owner:    owner,
		Title:    title,
		Decision: action,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s link: %w", action, err)
	}
	return token, nil
}
