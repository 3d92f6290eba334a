package entities

// Hashes holds the content digests of a binary (lower-case hex)
type Hashes struct {
	MD5  string `json:"md5" yaml:"md5"`
	SHA1 string `json:"sha1" yaml:"sha1"`
}

// BinaryMetadata is format information read from the binary headers
type BinaryMetadata struct {
	Format           string // "elf", "macho", "unknown"
	Arch             string
	Executable       bool // ELF ET_EXEC/ET_DYN with interpreter, Mach-O MH_EXECUTE
	HasCodeSignature bool // Mach-O LC_CODE_SIGNATURE present
}

// Binary is an executable or shared library plus its computed identity and trust verdict.
//
// IsTrusted always equals SignedByVendor || (Hashes != nil && hash is whitelisted).
type Binary struct {
	Item

	Hashes             *Hashes  // nil if the file could not be read
	SigningAuthorities []string // certificate chain / signer names, empty if unsigned
	SignedByVendor     bool     // signed by the platform vendor
	SignatureError     string   // why extraction failed, empty on success
	Metadata           BinaryMetadata
}

// NewBinary creates an untrusted, unanalyzed shared library binary for path
func NewBinary(path string) *Binary {
	return &Binary{
		Item: Item{
			Kind: ItemDylib,
			Name: baseName(path),
			Path: path,
		},
		SigningAuthorities: []string{},
	}
}

// NewExecutable creates an unanalyzed binary for the main executable of a process
func NewExecutable(path string) *Binary {
	b := NewBinary(path)
	b.Kind = ItemExecutable
	return b
}

// HashReadable reports whether content hashing succeeded
func (b *Binary) HashReadable() bool {
	return b.Hashes != nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
