package feedback

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// CredentialsSource yields the service-account key JSON.
type CredentialsSource interface {
	Load() ([]byte, error)
}

// FileCredentials reads the key from Path. When IdentityPath is set the file is
// treated as age-encrypted (binary or ASCII-armored) and decrypted with the
// identities found there.
type FileCredentials struct {
	Path         string
	IdentityPath string
}

func (c FileCredentials) Load() ([]byte, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials %s: %w", c.Path, err)
	}
	if c.IdentityPath == "" {
		return data, nil
	}

	identityFile, err := os.Open(c.IdentityPath)
	if err != nil {
		return nil, fmt.Errorf("opening age identity %s: %w", c.IdentityPath, err)
	}
	defer identityFile.Close()

	identities, err := age.ParseIdentities(identityFile)
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}

	return DecryptCredentials(data, identities...)
}

// DecryptCredentials decrypts an age payload, accepting armored input.
func DecryptCredentials(ciphertext []byte, identities ...age.Identity) ([]byte, error) {
	var src io.Reader = bytes.NewReader(ciphertext)

	br := bufio.NewReader(src)
	if head, _ := br.Peek(len(armor.Header)); string(head) == armor.Header {
		src = armor.NewReader(br)
	} else {
		src = br
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting credentials: %w", err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted credentials: %w", err)
	}
	return plain, nil
}
