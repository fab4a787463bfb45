package feedback_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
	"filippo.io/age/armor"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/supportbot/internal/feedback"
)

const serviceAccountKey = `{"type":"service_account","client_email":"bot@example.iam.gserviceaccount.com"}`

func encryptKey(recipient age.Recipient, armored bool) []byte {
	var buf bytes.Buffer
	var dst io.Writer = &buf

	var aw io.WriteCloser
	if armored {
		aw = armor.NewWriter(&buf)
		dst = aw
	}

	w, err := age.Encrypt(dst, recipient)
	Expect(err).NotTo(HaveOccurred())
	_, err = io.WriteString(w, serviceAccountKey)
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())
	if aw != nil {
		Expect(aw.Close()).To(Succeed())
	}
	return buf.Bytes()
}

var _ = Describe("FileCredentials", func() {
	var (
		dir      string
		identity *age.X25519Identity
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		identity, err = age.GenerateX25519Identity()
		Expect(err).NotTo(HaveOccurred())
	})

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, data, 0o600)).To(Succeed())
		return path
	}

	It("returns a plaintext key as-is", func() {
		creds := feedback.FileCredentials{Path: write("key.json", []byte(serviceAccountKey))}

		key, err := creds.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(key)).To(Equal(serviceAccountKey))
	})

	DescribeTable("decrypts an age-encrypted key",
		func(armored bool) {
			creds := feedback.FileCredentials{
				Path:         write("key.json.age", encryptKey(identity.Recipient(), armored)),
				IdentityPath: write("identity.txt", []byte(identity.String()+"\n")),
			}

			key, err := creds.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(key)).To(Equal(serviceAccountKey))
		},
		Entry("binary", false),
		Entry("armored", true),
	)

	It("fails with the wrong identity", func() {
		other, err := age.GenerateX25519Identity()
		Expect(err).NotTo(HaveOccurred())

		creds := feedback.FileCredentials{
			Path:         write("key.json.age", encryptKey(identity.Recipient(), false)),
			IdentityPath: write("identity.txt", []byte(other.String()+"\n")),
		}

		_, err = creds.Load()
		Expect(err).To(MatchError(ContainSubstring("decrypting credentials")))
	})

	It("fails when the key file is missing", func() {
		_, err := feedback.FileCredentials{Path: filepath.Join(dir, "absent.json")}.Load()
		Expect(err).To(MatchError(ContainSubstring("reading credentials")))
	})
})
