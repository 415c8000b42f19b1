// Package mailer sends invitation mails over SMTP. Delivery is
// best-effort: failures are logged, never returned to the request path.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/raids-lab/taskboard/dao/model"
	"github.com/raids-lab/taskboard/pkg/config"
	"github.com/raids-lab/taskboard/pkg/logutils"
)

type Mailer struct {
	dialer *gomail.Dialer
	sender string
	host   string
}

// New returns a mailer, or nil when SMTP is not configured. A nil
// *Mailer is safe to pass around; its methods become no-ops.
func New(conf *config.Config) *Mailer {
	if conf.SMTP.Host == "" {
		logutils.Log.Info("smtp not configured, invitation mails disabled")
		return nil
	}
	return &Mailer{
		dialer: gomail.NewDialer(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.User, conf.SMTP.Pass),
		sender: conf.SMTP.Sender,
		host:   conf.Host,
	}
}

// MemberAdded implements service.InviteNotifier.
func (m *Mailer) MemberAdded(project *model.Project, user *model.User, role model.ProjectRole) {
	if m == nil {
		return
	}
	go func() {
		subject := fmt.Sprintf("You were added to %s", project.Name)
		body := fmt.Sprintf(
			"Hi %s,\n\nYou have been added to the project %q as %s.\n\nOpen it at %s/projects/%d\n",
			user.Name, project.Name, role.String(), m.host, project.ID,
		)
		if err := m.send(user.Email, subject, body); err != nil {
			logutils.Log.Errorf("failed to send invitation mail to %s: %v", user.Email, err)
		}
	}()
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
