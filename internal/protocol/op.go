// Package protocol defines the MouseTrap application protocol: the closed set
// of opcodes, message encoding, field validation, the base64(JSON) blobs that
// ride inside fields, and the encrypted Channel every connection uses after
// the key handshake.
package protocol

// Op is a protocol opcode. The set is closed; anything unrecognized decodes
// to OpUnknown.
type Op int

const (
	OpUnknown Op = iota

	// Requests sent by the endpoint.
	OpLogin
	OpRegister
	OpDefend
	OpLearn
	OpDataBlock
	OpEndData
	OpViewAccounts
	OpDeleteUser
	OpExit

	// Replies sent by the service.
	OpLoginReply
	OpRegisterReply
	OpNetworkReply
	OpNoData
	OpReady
	OpTrainReady
	OpAccountList
	OpDeleteReply
	OpBye
	OpServerError
)

var opCodes = map[Op]string{
	OpLogin:         "LOGINA",
	OpRegister:      "REGISA",
	OpDefend:        "DEFEND",
	OpLearn:         "LEARNU",
	OpDataBlock:     "DATABL",
	OpEndData:       "ENDATA",
	OpViewAccounts:  "VIEWCS",
	OpDeleteUser:    "DELUSR",
	OpExit:          "EXITCL",
	OpLoginReply:    "LOGINR",
	OpRegisterReply: "REGISR",
	OpNetworkReply:  "NETREP",
	OpNoData:        "NOEDAT",
	OpReady:         "IMREAD",
	OpTrainReady:    "TRAINE",
	OpAccountList:   "CSLIST",
	OpDeleteReply:   "DELETR",
	OpBye:           "BYECLT",
	OpServerError:   "SRVERR",
}

var opByCode = func() map[string]Op {
	m := make(map[string]Op, len(opCodes))
	for op, code := range opCodes {
		m[code] = op
	}
	return m
}()

// String returns the six-letter wire code of o.
func (o Op) String() string {
	if c, ok := opCodes[o]; ok {
		return c
	}
	return "UNKNOWN"
}

// IsRequest reports whether o is sent by the endpoint.
func (o Op) IsRequest() bool {
	return o >= OpLogin && o <= OpExit
}

// ParseOp maps a wire code to its Op.
func ParseOp(code string) Op {
	if op, ok := opByCode[code]; ok {
		return op
	}
	return OpUnknown
}

// Reply field values.
const (
	True  = "TRUE"
	False = "FALSE"
	Admin = "ADMIN"
)

// Handshake tags, exchanged in plain frames before encryption starts.
const (
	HelloClient = "HELLO-CLIENT"
	HelloServer = "HELLO-SERVER"
)
