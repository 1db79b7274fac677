package storage

import (
	_ "embed"
)

const (
	insertFlightSQL = `
INSERT INTO flights (radiosonde_id,
                     start_time,
                     radio_reset_time,
                     launch_time,
                     operator,
                     comments,
                     raw_path,
                     xdata_path)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	finishFlightSQL = `
UPDATE flights
SET comments     = ?,
    completed_at = ?
WHERE id = ?`

	flightColumns = `
    id,
    radiosonde_id,
    start_time,
    radio_reset_time,
    launch_time,
    operator,
    comments,
    raw_path,
    xdata_path,
    created_at,
    completed_at`

	selectFlightSQL = `
SELECT ` + flightColumns + `
FROM flights
WHERE
    id = ?`

	selectFlightByStartSQL = `
SELECT ` + flightColumns + `
FROM flights
WHERE
    radiosonde_id = ? AND start_time = ?`

	selectFlightsSQL = `
SELECT ` + flightColumns + `
FROM flights
ORDER BY start_time, id`

	insertRecordSQL = `
INSERT INTO records (flight_id,
                     timestamp,
                     rx_time,
                     pressure,
                     temperature,
                     humidity,
                     wind_direction,
                     wind_speed,
                     wind_north,
                     wind_east,
                     ascent_rate,
                     height,
                     longitude,
                     latitude)
VALUES `

	recordPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	insertXDataSQL = `
INSERT INTO xdata (flight_id,
                   timestamp,
                   rx_time,
                   time_offset,
                   instrument_type,
                   instrument_number,
                   server_time,
                   gps_offset,
                   payload,
                   twc_frequency,
                   slwc_frequency)
VALUES `

	xdataPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	selectRecordsSQL = `
SELECT flight_id,
       timestamp,
       rx_time,
       pressure,
       temperature,
       humidity,
       wind_direction,
       wind_speed,
       wind_north,
       wind_east,
       ascent_rate,
       height,
       longitude,
       latitude
FROM records
WHERE
    flight_id = ? AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`

	selectXDataSQL = `
SELECT flight_id,
       timestamp,
       rx_time,
       time_offset,
       instrument_type,
       instrument_number,
       server_time,
       gps_offset,
       payload,
       twc_frequency,
       slwc_frequency
FROM xdata
WHERE
    flight_id = ? AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`

	selectRecordsSpanSQL = `
SELECT COALESCE(MIN(timestamp), 0),
       COALESCE(MAX(timestamp), 0),
       COUNT(*)
FROM records
WHERE
    flight_id = ?`

	selectXDataSpanSQL = `
SELECT COALESCE(MIN(timestamp), 0),
       COALESCE(MAX(timestamp), 0),
       COUNT(*)
FROM xdata
WHERE
    flight_id = ?`
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)
