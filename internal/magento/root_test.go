package magento

import (
	"errors"
	"testing"

	"github.com/magerun-tools/syscheck/internal/fsys"
)

func TestDetectMajor(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  int
	}{
		{"magento 1 installed", []string{"/shop/app/etc/local.xml", "/shop/app/Mage.php"}, 1},
		{"magento 1 not installed", []string{"/shop/app/Mage.php"}, 1},
		{"magento 2", []string{"/shop/app/etc/env.php", "/shop/bin/magento"}, 2},
		{"magento 2 not installed", []string{"/shop/bin/magento"}, 2},
		{"unknown", []string{"/shop/index.php"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fsys.NewFake()
			for _, f := range tt.files {
				fs.AddFile(f, nil)
			}
			if got := DetectMajor(fs, "/shop"); got != tt.want {
				t.Errorf("DetectMajor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFindRootWalksUp(t *testing.T) {
	fs := fsys.NewFake()
	fs.AddFile("/srv/shop/app/etc/local.xml", nil)
	fs.AddDir("/srv/shop/app/code/local/Acme")

	root, err := FindRoot(fs, "/srv/shop/app/code/local/Acme")
	if err != nil {
		t.Fatalf("FindRoot: %v", err)
	}
	if root.Path != "/srv/shop" || root.Major != 1 {
		t.Errorf("root = %+v, want /srv/shop major 1", root)
	}
}

func TestFindRootNotFound(t *testing.T) {
	fs := fsys.NewFake()
	fs.AddDir("/home/user/project")

	_, err := FindRoot(fs, "/home/user/project")
	if !errors.Is(err, ErrRootNotFound) {
		t.Errorf("err = %v, want ErrRootNotFound", err)
	}
}

func TestOpenRoot(t *testing.T) {
	fs := fsys.NewFake()
	fs.AddFile("/srv/m2/app/etc/env.php", nil)
	fs.AddDir("/srv/empty")

	root, err := OpenRoot(fs, "/srv/m2")
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	if root.Major != 2 {
		t.Errorf("Major = %d, want 2", root.Major)
	}

	root, err = OpenRoot(fs, "/srv/empty")
	if err != nil {
		t.Fatalf("OpenRoot(empty): %v", err)
	}
	if root.Major != 0 {
		t.Errorf("Major = %d, want 0", root.Major)
	}

	if _, err := OpenRoot(fs, "/srv/missing"); !errors.Is(err, ErrRootNotFound) {
		t.Errorf("OpenRoot(missing) = %v, want ErrRootNotFound", err)
	}
}
