package appfs_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/included-edu/included/fs"
)

func TestFS_emailTemplates(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml", "course_generated.txt", "course_generated.gohtml", "course_published.txt", "course_published.gohtml"} {
		t.Run(name, func(t *testing.T) {
			data, err := fs.ReadFile(appfs.FS, "templates/email/"+name)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestFS_migrations(t *testing.T) {
	for _, engine := range []string{"postgres", "sqlite"} {
		files, err := fs.Glob(appfs.FS, "migrations/"+engine+"/*.sql")
		require.NoError(t, err)
		assert.Len(t, files, 2, engine)
	}
}
