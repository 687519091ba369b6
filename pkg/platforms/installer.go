package platforms

import (
	"os"
	"path/filepath"
)

// Install locations and markers.
const (
	DefaultInstallRoot        = "/opt"
	DefaultDynamicInstallRoot = "/tmp/oryx/platforms"
	SdkDownloadSentinel       = ".oryx-sdkdownload-sentinel"
)

// Installer knows where an SDK lives in the image and how to fetch one
// that is missing.
type Installer struct {
	Platform string
	// StorageName is the storage container holding the SDK tarballs.
	StorageName        string
	BuiltInDir         string
	DynamicInstallRoot string
	StorageBaseURL     string
}

func newInstaller(platform, storageName string, opts Options) *Installer {
	return &Installer{
		Platform:           platform,
		StorageName:        storageName,
		BuiltInDir:         filepath.Join(opts.installRoot(), storageName),
		DynamicInstallRoot: opts.dynamicInstallRoot(),
		StorageBaseURL:     opts.StorageBaseURL,
	}
}

func (i *Installer) dynamicDir(version string) string {
	return filepath.Join(i.DynamicInstallRoot, i.StorageName, version)
}

// IsVersionInstalled reports whether version is in the image or was
// completely downloaded by an earlier build.
func (i *Installer) IsVersionInstalled(version string) bool {
	if info, err := os.Stat(filepath.Join(i.BuiltInDir, version)); err == nil && info.IsDir() {
		return true
	}
	_, err := os.Stat(filepath.Join(i.dynamicDir(version), SdkDownloadSentinel))
	return err == nil
}

// InstallDir returns the directory holding version, preferring the image copy.
func (i *Installer) InstallDir(version string) string {
	builtIn := filepath.Join(i.BuiltInDir, version)
	if info, err := os.Stat(builtIn); err == nil && info.IsDir() {
		return builtIn
	}
	return i.dynamicDir(version)
}

// Snippet renders the download-and-extract script for version.
func (i *Installer) Snippet(version string) (string, error) {
	return render("installer.sh.tpl", struct {
		Platform    string
		StorageName string
		Version     string
		InstallDir  string
		BaseURL     string
		Sentinel    string
	}{
		Platform:    i.Platform,
		StorageName: i.StorageName,
		Version:     version,
		InstallDir:  i.dynamicDir(version),
		BaseURL:     i.StorageBaseURL,
		Sentinel:    SdkDownloadSentinel,
	})
}
