// Package detector implements C1 (Folder Detector): enumerating every
// distinct StarCraft II replay-folder root for the current user, across
// every account and region found under the game's per-platform data root.
//
// Grounded on _examples/original_source/src-tauri/src/sc2_detector.rs, which
// returns only the first matching folder; spec.md §4.1 requires every
// distinct folder, so this is a deliberate generalization, not a port.
package detector

import (
	"os"
	"path/filepath"
	"runtime"
)

// Folder is one distinct replay-folder root.
type Folder struct {
	Path      string
	AccountID string
	Region    string
	RegionCode string
}

var regionLabels = map[byte]string{
	'1': "NA",
	'2': "EU",
	'3': "KR",
	'5': "CN",
}

// RegionLabel maps a region code's leading digit to its human label, per
// spec.md §3. An unrecognized leading digit yields "Unknown".
func RegionLabel(regionCode string) string {
	if regionCode == "" {
		return "Unknown"
	}
	if label, ok := regionLabels[regionCode[0]]; ok {
		return label
	}
	return "Unknown"
}

// Detect returns every distinct replay-folder root for the current user.
// Missing roots are not errors - they simply contribute no folders.
func Detect() ([]Folder, error) {
	roots, err := platformRoots()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var folders []Folder
	for _, root := range roots {
		accountsDir := filepath.Join(root, "Accounts")
		accountEntries, err := os.ReadDir(accountsDir)
		if err != nil {
			continue
		}
		for _, accountEntry := range accountEntries {
			if !accountEntry.IsDir() {
				continue
			}
			accountID := accountEntry.Name()
			accountPath := filepath.Join(accountsDir, accountID)
			regionEntries, err := os.ReadDir(accountPath)
			if err != nil {
				continue
			}
			for _, regionEntry := range regionEntries {
				if !regionEntry.IsDir() {
					continue
				}
				regionCode := regionEntry.Name()
				multiplayerPath := filepath.Join(accountPath, regionCode, "Replays", "Multiplayer")
				info, err := os.Stat(multiplayerPath)
				if err != nil || !info.IsDir() {
					continue
				}
				canonical := filepath.Clean(multiplayerPath)
				if _, dup := seen[canonical]; dup {
					continue
				}
				seen[canonical] = struct{}{}
				folders = append(folders, Folder{
					Path:       canonical,
					AccountID:  accountID,
					Region:     RegionLabel(regionCode),
					RegionCode: regionCode,
				})
			}
		}
	}
	return folders, nil
}

// platformRoots returns the candidate SC2 data directories to search,
// following the Windows/macOS/Linux split in sc2_detector.rs.
func platformRoots() ([]string, error) {
	switch runtime.GOOS {
	case "windows":
		return windowsRoots()
	case "darwin":
		return macRoots()
	default:
		return linuxRoots()
	}
}

func windowsRoots() ([]string, error) {
	docs, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	return []string{filepath.Join(docs, "Documents", "StarCraft II")}, nil
}

func macRoots() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	return []string{filepath.Join(home, "Library", "Application Support", "Blizzard", "StarCraft II")}, nil
}

// linuxRoots iterates common Wine/Proton user-home locations, since the game
// only runs under compatibility layers on Linux. Every candidate is tried;
// none existing is not an error.
func linuxRoots() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil
	}
	candidates := []string{
		filepath.Join(home, ".wine", "drive_c", "users", filepath.Base(home), "Documents", "StarCraft II"),
		filepath.Join(home, ".local", "share", "Steam", "steamapps", "compatdata"),
	}
	var roots []string
	roots = append(roots, candidates[0])

	// Proton prefixes live one level deeper, per-appid; walk one level to
	// find any that contain a StarCraft II documents folder.
	protonBase := candidates[1]
	entries, err := os.ReadDir(protonBase)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			roots = append(roots, filepath.Join(protonBase, entry.Name(), "pfx", "drive_c", "users", "steamuser", "Documents", "StarCraft II"))
		}
	}
	return roots, nil
}
