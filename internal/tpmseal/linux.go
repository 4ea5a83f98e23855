//go:build linux

// TPM 2.0 sealing for Linux, talking to /dev/tpmrm0 (resource-managed) or
// /dev/tpm0 (direct) via the SRK seal/unseal commands. Trimmed to the single
// operation this domain needs: no PCR policy, no monotonic counter, no
// attestation key, since the admin key only needs to survive a disk theft,
// not prove anything about boot state.
package tpmseal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
)

var tpmDevicePaths = []string{
	"/dev/tpmrm0",
	"/dev/tpm0",
}

// Linux seals the admin key under a TPM 2.0 storage root key.
type Linux struct {
	mu         sync.Mutex
	devicePath string
	tr         transport.TPM
	open       bool
}

func newLinuxSealer() *Linux {
	for _, path := range tpmDevicePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			continue
		}
		f.Close()
		return &Linux{devicePath: path}
	}
	return nil
}

// Available reports whether the TPM device can still be statted.
func (l *Linux) Available() bool {
	if l.devicePath == "" {
		return false
	}
	_, err := os.Stat(l.devicePath)
	return err == nil
}

func (l *Linux) open_() error {
	if l.open {
		return nil
	}
	tr, err := transport.OpenTPM(l.devicePath)
	if err != nil {
		return fmt.Errorf("tpmseal: open %s: %w", l.devicePath, err)
	}
	l.tr = tr
	l.open = true
	return nil
}

// Close releases the TPM transport.
func (l *Linux) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open {
		return nil
	}
	err := l.tr.Close()
	l.open = false
	l.tr = nil
	return err
}

func (l *Linux) createSRK() (tpm2.TPMHandle, error) {
	createPrimaryCmd := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.TPMRHOwner,
		InPublic: tpm2.New2B(tpm2.TPMTPublic{
			Type:    tpm2.TPMAlgECC,
			NameAlg: tpm2.TPMAlgSHA256,
			ObjectAttributes: tpm2.TPMAObject{
				FixedTPM:            true,
				FixedParent:         true,
				SensitiveDataOrigin: true,
				UserWithAuth:        true,
				Restricted:          true,
				Decrypt:             true,
			},
			Parameters: tpm2.NewTPMUPublicParms(
				tpm2.TPMAlgECC,
				&tpm2.TPMSECCParms{
					CurveID: tpm2.TPMECCNistP256,
					Scheme: tpm2.TPMTECCScheme{
						Scheme: tpm2.TPMAlgNull,
					},
				},
			),
		}),
	}

	rsp, err := createPrimaryCmd.Execute(l.tr)
	if err != nil {
		return 0, err
	}
	return rsp.ObjectHandle, nil
}

// Seal wraps data under a fresh SRK-sealed object. The returned blob encodes
// len(pub) || pub || len(priv) || priv so Unseal can reconstruct both halves.
func (l *Linux) Seal(data []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open_(); err != nil {
		return nil, err
	}

	srkHandle, err := l.createSRK()
	if err != nil {
		return nil, fmt.Errorf("tpmseal: create SRK: %w", err)
	}
	defer func() {
		flush := tpm2.FlushContext{FlushHandle: srkHandle}
		flush.Execute(l.tr)
	}()

	createCmd := tpm2.Create{
		ParentHandle: tpm2.AuthHandle{
			Handle: srkHandle,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InSensitive: tpm2.TPM2BSensitiveCreate{
			Sensitive: &tpm2.TPMSSensitiveCreate{
				Data: tpm2.NewTPMUSensitiveCreate(
					&tpm2.TPM2BSensitiveData{Buffer: data},
				),
			},
		},
		InPublic: tpm2.New2B(tpm2.TPMTPublic{
			Type:    tpm2.TPMAlgKeyedHash,
			NameAlg: tpm2.TPMAlgSHA256,
			ObjectAttributes: tpm2.TPMAObject{
				FixedTPM:     true,
				FixedParent:  true,
				UserWithAuth: true,
			},
		}),
	}

	createRsp, err := createCmd.Execute(l.tr)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: Create: %w", err)
	}

	pubBytes, err := createRsp.OutPublic.Marshal()
	if err != nil {
		return nil, fmt.Errorf("tpmseal: marshal public: %w", err)
	}
	privBytes, err := createRsp.OutPrivate.Marshal()
	if err != nil {
		return nil, fmt.Errorf("tpmseal: marshal private: %w", err)
	}

	sealed := make([]byte, 4+len(pubBytes)+4+len(privBytes))
	binary.BigEndian.PutUint32(sealed[0:4], uint32(len(pubBytes)))
	copy(sealed[4:], pubBytes)
	offset := 4 + len(pubBytes)
	binary.BigEndian.PutUint32(sealed[offset:offset+4], uint32(len(privBytes)))
	copy(sealed[offset+4:], privBytes)

	return sealed, nil
}

// Unseal loads a blob produced by Seal back under a fresh SRK and unseals it.
func (l *Linux) Unseal(sealed []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open_(); err != nil {
		return nil, err
	}

	if len(sealed) < 8 {
		return nil, ErrCorrupted
	}

	pubLen := binary.BigEndian.Uint32(sealed[0:4])
	if len(sealed) < int(4+pubLen+4) {
		return nil, ErrCorrupted
	}
	pubBytes := sealed[4 : 4+pubLen]
	offset := 4 + pubLen
	privLen := binary.BigEndian.Uint32(sealed[offset : offset+4])
	if len(sealed) < int(offset+4+privLen) {
		return nil, ErrCorrupted
	}
	privBytes := sealed[offset+4 : offset+4+privLen]

	var outPublic tpm2.TPM2BPublic
	if _, err := outPublic.Unmarshal(pubBytes); err != nil {
		return nil, fmt.Errorf("tpmseal: unmarshal public: %w", err)
	}

	srkHandle, err := l.createSRK()
	if err != nil {
		return nil, fmt.Errorf("tpmseal: create SRK: %w", err)
	}
	defer func() {
		flush := tpm2.FlushContext{FlushHandle: srkHandle}
		flush.Execute(l.tr)
	}()

	loadCmd := tpm2.Load{
		ParentHandle: tpm2.AuthHandle{
			Handle: srkHandle,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPublic:  outPublic,
		InPrivate: tpm2.TPM2BPrivate{Buffer: privBytes},
	}
	loadRsp, err := loadCmd.Execute(l.tr)
	if err != nil {
		return nil, fmt.Errorf("tpmseal: Load: %w", err)
	}
	defer func() {
		flush := tpm2.FlushContext{FlushHandle: loadRsp.ObjectHandle}
		flush.Execute(l.tr)
	}()

	unsealCmd := tpm2.Unseal{
		ItemHandle: tpm2.AuthHandle{
			Handle: loadRsp.ObjectHandle,
			Auth:   tpm2.PasswordAuth(nil),
		},
	}
	unsealRsp, err := unsealCmd.Execute(l.tr)
	if err != nil {
		return nil, errors.Join(ErrCorrupted, err)
	}

	return unsealRsp.OutData.Buffer, nil
}
