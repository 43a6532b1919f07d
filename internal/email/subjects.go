package email

import "fmt"

const subjectNotificationFmt = "[Portail] %s"

// Subject prefixes a notification title for the inbox.
func Subject(title string) string {
	return fmt.Sprintf(subjectNotificationFmt, title)
}
