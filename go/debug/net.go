package debug

import (
	"net"
	"strconv"

	"github.com/jnnycn007/fbalpha2012-cps3/go/models"
)

// Accept waits for a single connection on host:port.
func Accept(host string, port int, config *models.Config) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	config.Printf("Waiting for connection on %s\n", addr)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	return ln.Accept()
}
