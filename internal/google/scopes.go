package google

import drive "google.golang.org/api/drive/v3"

// DefaultOAuthScopes are the Google OAuth scopes requested by drivepicker.
//
// drive.file only grants access to files the application created and files
// the user explicitly opened with the Google Picker. Broader Drive scopes are
// never requested.
var DefaultOAuthScopes = []string{
	drive.DriveFileScope,
}
