package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func CreateDirectoryAndPath(dirPath string, filename string) error {

	completeFilePath := filepath.Join(dirPath, filename)

	_, err := os.Stat(dirPath)

	if os.IsNotExist(err) {
		err = os.MkdirAll(dirPath, 0764)
		if err != nil {
			return fmt.Errorf("os.MkdirAll(dirPath, 0764) %w", err)
		}
	}

	_, err = os.Stat(completeFilePath)

	if os.IsNotExist(err) {
		file, err := os.Create(completeFilePath)
		if err != nil {
			return fmt.Errorf("os.Create(completeFilePath) %w", err)
		}
		return file.Close()
	}

	return nil

}

func GetLogsDirectory() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("os.UserConfigDir(), %w", err)
	}
	return filepath.Join(dir, ConfigDirName), nil
}

// LndMacaroonPath follows lnd's layout: <lnddir>/data/chain/bitcoin/<network>/admin.macaroon
func LndMacaroonPath(lndDir string, network string) string {
	return filepath.Join(LndMacaroonDir(lndDir, network), "admin.macaroon")
}

func LndMacaroonDir(lndDir string, network string) string {
	return filepath.Join(lndDir, "data", "chain", "bitcoin", network)
}

func LndTlsCertPath(lndDir string) string {
	return filepath.Join(lndDir, "tls.cert")
}
