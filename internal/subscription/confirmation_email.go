package subscription

import (
	"fmt"
	"net/url"
	"strings"
)

// confirmationSubject は確認メールの件名。
const confirmationSubject = "Welcome to our newsletter!"

// confirmationEmail は確認メールの件名と本文。
type confirmationEmail struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// confirmationLink はトークンを埋め込んだ確認URLを返す。
func confirmationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/subscriptions/confirm?token=" + url.QueryEscape(token)
}

// buildConfirmationEmail は確認メールを組み立てる。
// HTML本文に埋め込む名前はescapedNameとして呼び出し側でエスケープ済みのものを受け取る。
func buildConfirmationEmail(name, escapedName, link string) confirmationEmail {
	return confirmationEmail{
		Subject: confirmationSubject,
		HTMLBody: fmt.Sprintf(
			"Hi %s,<br />Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.",
			escapedName, link,
		),
		TextBody: fmt.Sprintf(
			"Hi %s,\nWelcome to our newsletter!\nVisit %s to confirm your subscription.",
			name, link,
		),
	}
}
