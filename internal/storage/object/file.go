package object

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxKeyFilenameLen = 128

// DeriveKey 生成对象键 <prefix>/YYYY/MM/DD/<uuid>-<文件名>；uuid 区分并发上传的同名文件
func DeriveKey(prefix, filename string, now time.Time) string {
	name := uuid.NewString() + "-" + SanitizeFilename(filename)
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006/01/02"), name)
}

// SanitizeFilename 去掉目录部分，非 [A-Za-z0-9._-] 字符替换为 '_'
func SanitizeFilename(filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" || name == "_" {
		return "document.pdf"
	}
	if len(name) > maxKeyFilenameLen {
		name = name[len(name)-maxKeyFilenameLen:]
	}
	return name
}
