package provision

import (
	"io/fs"
)

// Native daemon configuration paths.
const (
	PostfixMainCF   = "/etc/postfix/main.cf"
	DovecotLocalCF  = "/etc/dovecot/local.conf"
	MailnamePath    = "/etc/mailname"
	PostfixVmailbox = "/etc/postfix/vmailbox"
)

// File is one rendered configuration file.
type File struct {
	Path    string
	Mode    fs.FileMode
	Content []byte
}

// RenderNative renders the Postfix and Dovecot configuration for p. Output
// depends only on p.
func RenderNative(p Params) ([]File, error) {
	specs := []struct {
		path     string
		template string
		mode     fs.FileMode
	}{
		{PostfixMainCF, "postfix-main.cf.tmpl", 0o644},
		{DovecotLocalCF, "dovecot-local.conf.tmpl", 0o644},
		{MailnamePath, "mailname.tmpl", 0o644},
	}

	files := make([]File, 0, len(specs))
	for _, s := range specs {
		content, err := render(s.template, p)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: s.path, Mode: s.mode, Content: content})
	}
	return files, nil
}
