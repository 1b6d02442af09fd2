package regmap

// Writer is the write half of a Transport.
type Writer interface {
	Write(register uint8, data []byte) error
}

// Transport moves bytes between the host and the flat register file of one
// device. Write covers len(data) consecutive registers starting at register;
// Read fills data from consecutive registers the same way.
//
// Transports without burst support unroll into single-register transactions
// internally, in ascending register order.
type Transport interface {
	Writer
	Read(register uint8, data []byte) error
}
